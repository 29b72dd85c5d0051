package models

import "time"

// Creation is one generated image, stored in creations/{id}.
type Creation struct {
	ID               string    `json:"id" firestore:"-"`
	UserID           string    `json:"userId" firestore:"userId"`
	Prompt           string    `json:"prompt" firestore:"prompt"`
	EnhancedPrompt   string    `json:"enhancedPrompt,omitempty" firestore:"enhancedPrompt"`
	NegativePrompt   string    `json:"negativePrompt,omitempty" firestore:"negativePrompt"`
	StylePreset      string    `json:"stylePreset" firestore:"stylePreset"`
	StylePresetName  string    `json:"stylePresetName" firestore:"stylePresetName"`
	AspectRatio      string    `json:"aspectRatio" firestore:"aspectRatio"`
	AspectRatioLabel string    `json:"aspectRatioLabel" firestore:"aspectRatioLabel"`
	Creativity       int       `json:"creativity" firestore:"creativity"`
	DetailLevel      int       `json:"detailLevel" firestore:"detailLevel"`
	ColorPalette     string    `json:"colorPalette" firestore:"colorPalette"`
	ImageURL         string    `json:"imageUrl" firestore:"imageUrl"`
	StoragePath      string    `json:"-" firestore:"storagePath"`
	ImageWidth       int       `json:"imageWidth" firestore:"imageWidth"`
	ImageHeight      int       `json:"imageHeight" firestore:"imageHeight"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt"`
}

// GeneratedImage is the outcome of the generateAiImage callable.
type GeneratedImage struct {
	ImageURL    string `json:"imageUrl"`
	CreationID  string `json:"creationId"`
	ImageWidth  int    `json:"imageWidth"`
	ImageHeight int    `json:"imageHeight"`
	StoragePath string `json:"-"`
}
