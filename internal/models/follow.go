package models

// Follow is a directed edge: Follower receives broadcasts from Following.
type Follow struct {
	BaseModel

	FollowerID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_pair,priority:1;check:chk_follows_not_self,follower_id <> following_id" json:"followerId"`
	FollowingID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"followingId"`

	Follower  *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"following,omitempty"`
}
