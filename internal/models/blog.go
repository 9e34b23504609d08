package models

// Blog is a post owned by exactly one author.
type Blog struct {
	BaseModel

	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"authorId"`

	Author *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Likes  []BlogLike `gorm:"foreignKey:BlogID;constraint:OnDelete:CASCADE" json:"-"`
}

// BlogLike records that a user liked a blog. At most one row exists per pair.
type BlogLike struct {
	BaseModel

	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_blog_likes_pair,priority:1" json:"userId"`
	BlogID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_blog_likes_pair,priority:2;index" json:"blogId"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
