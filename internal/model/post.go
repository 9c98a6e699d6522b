package model

import "time"

// Post はブログ記事を表す。
// bodyは保存前にHTMLサニタイズ済みであることを前提とする。
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
