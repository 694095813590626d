package model

import (
	"mime/multipart"
	"time"
)

// TryOnForm is the multipart body of POST /api/process-tryon.
type TryOnForm struct {
	PersonImage        *multipart.FileHeader `form:"personImage" validate:"required"`
	ClothingImage      *multipart.FileHeader `form:"clothingImage" validate:"required"`
	GarmentDescription string                `form:"garmentDescription" validate:"required"`
}

// ReconstructForm is the multipart body of POST /api/3d-tryon.
type ReconstructForm struct {
	Person *multipart.FileHeader `form:"person" validate:"required"`
	Cloth  *multipart.FileHeader `form:"cloth"`
}

// TryOnResponse is returned by the 2D flow.
type TryOnResponse struct {
	Result string `json:"result"`
}

// ReconstructResponse is returned by the 3D flow.
type ReconstructResponse struct {
	Models       []string `json:"models"`
	HasMaterials bool     `json:"hasMaterials"`
	Message      string   `json:"message"`
}

// PIFuHDResponse is returned by the legacy reconstruction route.
type PIFuHDResponse struct {
	ObjURL string `json:"objUrl"`
}

// HistoryEntry is one remembered try-on result.
type HistoryEntry struct {
	UserImage     string    `json:"userImage" validate:"required"`
	ClothingImage string    `json:"clothingImage" validate:"required"`
	Description   string    `json:"description" validate:"required,max=500"`
	Result        string    `json:"result" validate:"required"`
	Timestamp     time.Time `json:"timestamp"`
}

// HistoryResponse lists history entries, latest first.
type HistoryResponse struct {
	Items []HistoryEntry `json:"items"`
}
