package social

import (
	"time"

	"socialhub/internal/models"
)

// UserSummary is the author/creator shape embedded in other views.
type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Image     string `json:"image"`
	Followers *int64 `json:"followers,omitempty"`
}

func summarize(u *models.User) UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{ID: u.ID, Name: u.Name, Username: u.Username, Image: u.Image}
}

// Counts are the follower, following and post totals of a user.
type Counts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Posts     int64 `json:"posts"`
}

// UserWithCounts is a full user row plus its counts.
type UserWithCounts struct {
	models.User
	Counts Counts `json:"_count"`
}

// Profile is the public profile page of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Image     string    `json:"image"`
	Location  string    `json:"location"`
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"createdAt"`
	Counts    Counts    `json:"_count"`
}

type CommentView struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Author    UserSummary `json:"author"`
}

// PostView is a post as rendered in a feed.
type PostView struct {
	ID           string        `json:"id"`
	Content      string        `json:"content"`
	Image        string        `json:"image"`
	CreatedAt    time.Time     `json:"createdAt"`
	Author       UserSummary   `json:"author"`
	Comments     []CommentView `json:"comments"`
	LikerIDs     []string      `json:"likerIds"`
	CommentCount int           `json:"commentCount"`
	LikeCount    int           `json:"likeCount"`
}

func postView(p *models.Post) PostView {
	view := PostView{
		ID:           p.ID,
		Content:      p.Content,
		Image:        p.Image,
		CreatedAt:    p.CreatedAt,
		Author:       summarize(p.Author),
		Comments:     make([]CommentView, 0, len(p.Comments)),
		LikerIDs:     make([]string, 0, len(p.Likes)),
		CommentCount: len(p.Comments),
		LikeCount:    len(p.Likes),
	}
	for i := range p.Comments {
		c := &p.Comments[i]
		view.Comments = append(view.Comments, CommentView{
			ID:        c.ID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Author:    summarize(c.Author),
		})
	}
	for _, l := range p.Likes {
		view.LikerIDs = append(view.LikerIDs, l.UserID)
	}
	return view
}

// LikedBy reports whether userID is among the likers.
func (p PostView) LikedBy(userID string) bool {
	for _, id := range p.LikerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type PostSummary struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentSummary struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationView is a notification with the rows it points at.
type NotificationView struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"createdAt"`
	Creator   UserSummary             `json:"creator"`
	Post      *PostSummary            `json:"post,omitempty"`
	Comment   *CommentSummary         `json:"comment,omitempty"`
}

func notificationView(n *models.Notification) NotificationView {
	view := NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		Creator:   summarize(n.Creator),
	}
	if n.Post != nil {
		view.Post = &PostSummary{ID: n.Post.ID, Content: n.Post.Content, Image: n.Post.Image, CreatedAt: n.Post.CreatedAt}
	}
	if n.Comment != nil {
		view.Comment = &CommentSummary{ID: n.Comment.ID, Content: n.Comment.Content, CreatedAt: n.Comment.CreatedAt}
	}
	return view
}
