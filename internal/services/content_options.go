package services

import "fmt"

// LikePolicy decides what a repeated like from the same user does.
type LikePolicy string

const (
	// LikeToggle removes an existing like ("unlike").
	LikeToggle LikePolicy = "toggle"
	// LikeReject fails a repeated like with ErrAlreadyLiked.
	LikeReject LikePolicy = "reject"
)

// ParseLikePolicy validates a configured policy name. Empty means toggle.
func ParseLikePolicy(value string) (LikePolicy, error) {
	switch LikePolicy(value) {
	case "":
		return LikeToggle, nil
	case LikeToggle, LikeReject:
		return LikePolicy(value), nil
	default:
		return "", fmt.Errorf("unknown like policy %q", value)
	}
}

// ContentOptions tunes the blog and job stores.
type ContentOptions struct {
	LikePolicy LikePolicy
	// NotifyOnDelete tells prior likers or applicants that content was removed.
	NotifyOnDelete bool
}

func (o ContentOptions) normalised() ContentOptions {
	if o.LikePolicy == "" {
		o.LikePolicy = LikeToggle
	}
	return o
}
