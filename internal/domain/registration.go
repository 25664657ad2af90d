package domain

// RegistrationData is the ticket's evolving registration sub-record.
// Phase 1 fields arrive at booking time; phase 2 fields arrive with the
// detailed paid submission. Attachment fields hold opaque storage URLs.
type RegistrationData struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Bio         string `json:"bio,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`

	Height        string `json:"height,omitempty"`
	Weight        string `json:"weight,omitempty"`
	Bust          string `json:"bust,omitempty"`
	Waist         string `json:"waist,omitempty"`
	Hips          string `json:"hips,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	PaymentAmount *int64 `json:"payment_amount,omitempty"`
}

// Merge applies a shallow merge: fields set in the incoming record
// overwrite, unset fields keep their existing value. Merging the same
// record twice is a no-op after the first application.
func (r RegistrationData) Merge(in RegistrationData) RegistrationData {
	out := r
	mergeString(&out.Name, in.Name)
	mergeString(&out.Email, in.Email)
	mergeString(&out.Phone, in.Phone)
	mergeString(&out.Bio, in.Bio)
	mergeString(&out.PhotoURL, in.PhotoURL)
	mergeString(&out.DocumentURL, in.DocumentURL)
	mergeString(&out.VideoURL, in.VideoURL)
	mergeString(&out.Height, in.Height)
	mergeString(&out.Weight, in.Weight)
	mergeString(&out.Bust, in.Bust)
	mergeString(&out.Waist, in.Waist)
	mergeString(&out.Hips, in.Hips)
	mergeString(&out.Address, in.Address)
	mergeString(&out.City, in.City)
	mergeString(&out.PaymentID, in.PaymentID)
	mergeString(&out.PaymentStatus, in.PaymentStatus)
	if in.PaymentAmount != nil {
		amount := *in.PaymentAmount
		out.PaymentAmount = &amount
	}
	return out
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
