package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AsynqAdapter routes asynq server logs through zerolog.
type AsynqAdapter struct {
	l zerolog.Logger
}

func NewAsynqAdapter(l zerolog.Logger) *AsynqAdapter {
	return &AsynqAdapter{l: l.With().Str("component", "asynq").Logger()}
}

func (a *AsynqAdapter) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
