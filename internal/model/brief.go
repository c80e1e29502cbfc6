package model

// Brief is the structured creative input for one ad video.
type Brief struct {
	Product         string  `json:"product" validate:"required"`
	ProductPhotoURL string  `json:"productPhotoUrl" validate:"required,url"`
	TargetAudience  string  `json:"icp"`
	ProductFeatures string  `json:"productFeatures"`
	VideoSetting    string  `json:"videoSetting"`
	Model           ModelID `json:"model" validate:"required,ugcmodel"`
}
