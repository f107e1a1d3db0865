package models

type Quest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
