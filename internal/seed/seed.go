// Package seed loads demo users, posts and relationships through the
// social service.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"socialhub/internal/auth"
	"socialhub/internal/models"
	"socialhub/internal/social"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

type User struct {
	Subject   string `yaml:"subject"`
	Email     string `yaml:"email"`
	Username  string `yaml:"username"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Image     string `yaml:"image"`
	Bio       string `yaml:"bio"`
	Location  string `yaml:"location"`
	Website   string `yaml:"website"`
}

func (u User) identity() auth.Identity {
	return auth.Identity{
		Subject:   u.Subject,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		ImageURL:  u.Image,
	}
}

type Comment struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

type Post struct {
	Author   string    `yaml:"author"`
	Content  string    `yaml:"content"`
	Image    string    `yaml:"image"`
	Comments []Comment `yaml:"comments"`
	Likes    []string  `yaml:"likes"`
}

type Follow struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

// Fixtures is the document format of a seed file. Posts, comments, likes
// and follows refer to users by username.
type Fixtures struct {
	Users   []User   `yaml:"users"`
	Posts   []Post   `yaml:"posts"`
	Follows []Follow `yaml:"follows"`
}

// Summary counts what Apply created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Follows  int
}

// Service is the subset of the social service used for seeding.
type Service interface {
	SyncUser(ctx context.Context, identity auth.Identity) (models.User, error)
	UpdateProfile(ctx context.Context, identity auth.Identity, in social.ProfileInput) (models.User, error)
	CreatePost(ctx context.Context, identity auth.Identity, content, imageURL string) (models.Post, error)
	UserPosts(ctx context.Context, userID string) ([]social.PostView, error)
	AddComment(ctx context.Context, identity auth.Identity, postID, content string) (models.Comment, error)
	ToggleLike(ctx context.Context, identity auth.Identity, postID string) (bool, error)
	IsFollowing(ctx context.Context, identity auth.Identity, targetID string) (bool, error)
	ToggleFollow(ctx context.Context, identity auth.Identity, targetID string) (bool, error)
}

// Default returns the embedded demo fixtures.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// Parse decodes a YAML fixtures document.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// Load reads fixtures from r.
func Load(r io.Reader) (*Fixtures, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

type seededUser struct {
	identity auth.Identity
	id       string
}

// Apply creates everything in f that does not exist yet, so running it
// twice leaves the database unchanged.
func Apply(ctx context.Context, svc Service, f *Fixtures, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sum Summary
	users := make(map[string]seededUser, len(f.Users))

	for _, u := range f.Users {
		identity := u.identity()
		user, err := svc.SyncUser(ctx, identity)
		if err != nil {
			return sum, fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
		if u.Bio != "" || u.Location != "" || u.Website != "" {
			in := social.ProfileInput{Name: user.Name, Bio: u.Bio, Location: u.Location, Website: u.Website}
			if _, err := svc.UpdateProfile(ctx, identity, in); err != nil {
				return sum, fmt.Errorf("failed to seed profile %s: %w", u.Username, err)
			}
		}
		users[user.Username] = seededUser{identity: identity, id: user.ID}
		sum.Users++
	}

	lookup := func(username string) (seededUser, error) {
		u, ok := users[username]
		if !ok {
			return seededUser{}, fmt.Errorf("unknown user %q in fixtures", username)
		}
		return u, nil
	}

	for _, p := range f.Posts {
		author, err := lookup(p.Author)
		if err != nil {
			return sum, err
		}

		existing, err := svc.UserPosts(ctx, author.id)
		if err != nil {
			return sum, err
		}
		var post *social.PostView
		for i := range existing {
			if existing[i].Content == p.Content && existing[i].Image == p.Image {
				post = &existing[i]
				break
			}
		}

		if post == nil {
			created, err := svc.CreatePost(ctx, author.identity, p.Content, p.Image)
			if err != nil {
				return sum, fmt.Errorf("failed to seed post by %s: %w", p.Author, err)
			}
			post = &social.PostView{ID: created.ID}
			sum.Posts++

			for _, c := range p.Comments {
				commenter, err := lookup(c.Author)
				if err != nil {
					return sum, err
				}
				if _, err := svc.AddComment(ctx, commenter.identity, created.ID, c.Content); err != nil {
					return sum, fmt.Errorf("failed to seed comment by %s: %w", c.Author, err)
				}
				sum.Comments++
			}
		}

		for _, username := range p.Likes {
			liker, err := lookup(username)
			if err != nil {
				return sum, err
			}
			if post.LikedBy(liker.id) {
				continue
			}
			if _, err := svc.ToggleLike(ctx, liker.identity, post.ID); err != nil {
				return sum, fmt.Errorf("failed to seed like by %s: %w", username, err)
			}
			sum.Likes++
		}
	}

	for _, fl := range f.Follows {
		follower, err := lookup(fl.Follower)
		if err != nil {
			return sum, err
		}
		following, err := lookup(fl.Following)
		if err != nil {
			return sum, err
		}
		ok, err := svc.IsFollowing(ctx, follower.identity, following.id)
		if err != nil {
			return sum, err
		}
		if ok {
			continue
		}
		if _, err := svc.ToggleFollow(ctx, follower.identity, following.id); err != nil {
			return sum, fmt.Errorf("failed to seed follow %s -> %s: %w", fl.Follower, fl.Following, err)
		}
		sum.Follows++
	}

	logger.Info("seed applied",
		zap.Int("users", sum.Users),
		zap.Int("posts", sum.Posts),
		zap.Int("comments", sum.Comments),
		zap.Int("likes", sum.Likes),
		zap.Int("follows", sum.Follows))
	return sum, nil
}
