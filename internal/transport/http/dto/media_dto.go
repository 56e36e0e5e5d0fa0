package dto

type UploadImageResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
