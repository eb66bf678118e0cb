package models

import "time"

// Post is a short message published by a user. The author fields are a
// snapshot taken at creation time and never change afterwards, even if
// the author later renames.
type Post struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID       string    `json:"author_id" gorm:"index;type:varchar(36)"`
	AuthorUsername string    `json:"author_username" gorm:"type:varchar(50)"`
	Content        string    `json:"content" gorm:"type:text"`
	IsPublic       bool      `json:"is_public"`
	Likes          []Like    `json:"likes" gorm:"foreignKey:PostID"`
	Comments       []Comment `json:"comments" gorm:"foreignKey:PostID"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Like marks that a user liked a post. The composite primary key keeps
// at most one row per (post, user) pair.
type Like struct {
	PostID string `json:"-" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
}

// Comment is an append-only reply attached to a post. Comments are
// never edited or removed; the auto-increment ID preserves insertion
// order.
type Comment struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID         string    `json:"-" gorm:"index;type:varchar(36)"`
	AuthorID       string    `json:"author_id" gorm:"type:varchar(36)"`
	AuthorUsername string    `json:"author_username" gorm:"type:varchar(50)"`
	Text           string    `json:"text" gorm:"type:varchar(1000)"`
	CreatedAt      time.Time `json:"created_at"`
}

// LikedBy reports whether userID is present in the post's like set.
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}
