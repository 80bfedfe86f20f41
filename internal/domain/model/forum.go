package model

// Tag is a forum tag descriptor. Temperature is the server's popularity score.
type Tag struct {
	ID          int    `json:"tag_id"`
	Name        string `json:"name"`
	Temperature int    `json:"temperature"`
}

// Division is a top-level forum section.
type Division struct {
	ID          int    `json:"division_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
