package model

type PostID string

type Post struct {
	ID        PostID    `json:"id"`
	Content   string    `json:"content"`
	UserID    UserID    `json:"userId"`
	Timestamp Timestamp `json:"timestamp"`
}
