package model

import "time"

// RequestStatusPending is the only status a submission is ever given.
const RequestStatusPending = "pending"

// RequestSubmission is a help request / complaint submitted through the
// request form. FileURLs are public-relative paths of the stored attachments.
type RequestSubmission struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     *string   `json:"address"`
	RequestType string    `json:"requestType"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	FileURLs    []string  `json:"fileUrls"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
