package social_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"socialhub/internal/auth"
	"socialhub/internal/database"
	"socialhub/internal/migration"
	_ "socialhub/internal/migrations"
	"socialhub/internal/models"
	"socialhub/internal/social"
)

func setupService(t *testing.T) (*social.Service, *gorm.DB) {
	t.Helper()
	return openService(t, "sqlite://:memory:")
}

// setupFileService backs the service with a sqlite file so that more than
// one connection can write.
func setupFileService(t *testing.T) (*social.Service, *gorm.DB) {
	t.Helper()
	return openService(t, "sqlite://"+filepath.Join(t.TempDir(), "social.db"))
}

func openService(t *testing.T, url string) (*social.Service, *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, url, database.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = migration.NewMigrator(db, nil).Up(ctx)
	require.NoError(t, err)

	return social.NewService(db, nil), db
}

func identity(name string) auth.Identity {
	return auth.Identity{
		Subject:   "user_" + name,
		Email:     name + "@example.com",
		Username:  name,
		FirstName: strings.ToUpper(name[:1]) + name[1:],
	}
}

func syncUser(t *testing.T, svc *social.Service, name string) (auth.Identity, models.User) {
	t.Helper()
	id := identity(name)
	user, err := svc.SyncUser(context.Background(), id)
	require.NoError(t, err)
	return id, user
}

// commitBeforeCreate commits a row into table from another connection right
// before the next insert into table runs, so that insert hits the unique key.
func commitBeforeCreate(t *testing.T, db *gorm.DB, table, query string, args ...interface{}) {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("test:commit_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != table {
			return
		}
		fired = true
		require.NoError(t, db.Exec(query, args...).Error)
	})
	require.NoError(t, err)
}

func countNotifications(t *testing.T, db *gorm.DB, userID string, typ models.NotificationType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", userID, typ).Count(&n).Error)
	return n
}

func TestSyncUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	id := auth.Identity{Subject: "user_1", Email: "mad.hatter@example.com", FirstName: "Mad", ImageURL: "https://img.example.com/h.png"}
	user, err := svc.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Mad", user.Name)
	assert.Equal(t, "mad.hatter", user.Username)
	assert.Equal(t, "https://img.example.com/h.png", user.Image)

	again, err := svc.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = svc.SyncUser(ctx, auth.Identity{})
	assert.ErrorIs(t, err, social.ErrUnauthenticated)

	_, err = svc.SyncUser(ctx, auth.Identity{Subject: "user_2"})
	assert.ErrorIs(t, err, social.ErrInvalidProfile)
}

func TestCurrentUserID(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CurrentUserID(ctx, auth.Identity{})
	assert.ErrorIs(t, err, social.ErrUnauthenticated)

	_, err = svc.CurrentUserID(ctx, identity("ghost"))
	assert.ErrorIs(t, err, social.ErrUserNotFound)

	alice, user := syncUser(t, svc, "alice")
	id, err := svc.CurrentUserID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestCreatePostAppearsInListing(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, user := syncUser(t, svc, "alice")

	first, err := svc.CreatePost(ctx, alice, "first post", "")
	require.NoError(t, err)
	second, err := svc.CreatePost(ctx, alice, "", "https://img.example.com/cat.png")
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
	assert.Equal(t, user.ID, posts[1].Author.ID)
	assert.Equal(t, "alice", posts[1].Author.Username)
	assert.Empty(t, posts[1].Comments)
	assert.Zero(t, posts[1].LikeCount)

	page, err := svc.ListPosts(ctx, social.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestCreatePostValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, _ := syncUser(t, svc, "alice")

	_, err := svc.CreatePost(ctx, alice, "   ", "")
	assert.ErrorIs(t, err, social.ErrContentRequired)

	_, err = svc.CreatePost(ctx, auth.Identity{}, "hello", "")
	assert.ErrorIs(t, err, social.ErrUnauthenticated)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, bobUser := syncUser(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice, "like me", "")
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	posts, err := svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, posts[0].LikeCount)
	assert.True(t, posts[0].LikedBy(bobUser.ID))
	assert.Equal(t, int64(1), countNotifications(t, db, aliceUser.ID, models.NotificationLike))

	liked, err = svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	posts, err = svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	assert.Zero(t, posts[0].LikeCount)
	assert.False(t, posts[0].LikedBy(bobUser.ID))
}

func TestToggleLikeConcurrentInsertCountsAsLiked(t *testing.T) {
	svc, db := setupFileService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, bobUser := syncUser(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice, "popular", "")
	require.NoError(t, err)

	commitBeforeCreate(t, db, "likes",
		"INSERT INTO likes (id, post_id, user_id, created_at) VALUES (?, ?, ?, ?)",
		models.NewID(), post.ID, bobUser.ID, time.Now().UTC())

	liked, err := svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Equal(t, int64(1), likes)
	assert.Zero(t, countNotifications(t, db, aliceUser.ID, models.NotificationLike))

	liked, err = svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggleLikeOwnPostDoesNotNotify(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")

	post, err := svc.CreatePost(ctx, alice, "mine", "")
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Zero(t, countNotifications(t, db, aliceUser.ID, models.NotificationLike))
}

func TestToggleLikeMissingPost(t *testing.T) {
	svc, _ := setupService(t)
	alice, _ := syncUser(t, svc, "alice")

	_, err := svc.ToggleLike(context.Background(), alice, models.NewID())
	assert.ErrorIs(t, err, social.ErrPostNotFound)
}

func TestAddComment(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, _ := syncUser(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice, "discuss", "")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, bob, post.ID, "  ")
	assert.ErrorIs(t, err, social.ErrContentRequired)

	_, err = svc.AddComment(ctx, bob, models.NewID(), "hello")
	assert.ErrorIs(t, err, social.ErrPostNotFound)

	first, err := svc.AddComment(ctx, bob, post.ID, "first!")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, alice, post.ID, "thanks")
	require.NoError(t, err)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", aliceUser.ID, models.NotificationComment).Take(&notification).Error)
	require.NotNil(t, notification.CommentID)
	assert.Equal(t, first.ID, *notification.CommentID)
	assert.Equal(t, int64(1), countNotifications(t, db, aliceUser.ID, models.NotificationComment))

	posts, err := svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	require.Len(t, posts[0].Comments, 2)
	assert.Equal(t, 2, posts[0].CommentCount)
	assert.Equal(t, "first!", posts[0].Comments[0].Content)
	assert.Equal(t, "bob", posts[0].Comments[0].Author.Username)
}

func TestDeletePost(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice, _ := syncUser(t, svc, "alice")
	bob, _ := syncUser(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice, "short lived", "")
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, bob, post.ID, "nice")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePost(ctx, bob, post.ID), social.ErrForbidden)

	posts, err := svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, svc.DeletePost(ctx, alice, post.ID))
	assert.ErrorIs(t, svc.DeletePost(ctx, alice, post.ID), social.ErrPostNotFound)

	posts, err = svc.ListPosts(ctx, social.Page{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	for _, model := range []interface{}{&models.Comment{}, &models.Like{}, &models.Notification{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows should cascade", model)
	}
}

func TestToggleFollow(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, bobUser := syncUser(t, svc, "bob")

	following, err := svc.ToggleFollow(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.True(t, following)
	assert.Equal(t, int64(1), countNotifications(t, db, bobUser.ID, models.NotificationFollow))

	ok, err := svc.IsFollowing(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	withCounts, err := svc.GetUserByExternalID(ctx, bob.Subject)
	require.NoError(t, err)
	assert.Equal(t, int64(1), withCounts.Counts.Followers)
	assert.Zero(t, withCounts.Counts.Following)

	following, err = svc.ToggleFollow(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.False(t, following)

	ok, err = svc.IsFollowing(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.ToggleFollow(ctx, alice, aliceUser.ID)
	assert.ErrorIs(t, err, social.ErrSelfFollow)

	_, err = svc.ToggleFollow(ctx, alice, models.NewID())
	assert.ErrorIs(t, err, social.ErrUserNotFound)

	ok, err = svc.IsFollowing(ctx, auth.Identity{}, bobUser.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.GetUserByExternalID(ctx, "user_nobody")
	assert.ErrorIs(t, err, social.ErrUserNotFound)
}

func TestToggleFollowConcurrentInsertCountsAsFollowing(t *testing.T) {
	svc, db := setupFileService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	_, bobUser := syncUser(t, svc, "bob")

	commitBeforeCreate(t, db, "follows",
		"INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)",
		aliceUser.ID, bobUser.ID, time.Now().UTC())

	following, err := svc.ToggleFollow(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.True(t, following)

	ok, err := svc.IsFollowing(ctx, alice, bobUser.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, countNotifications(t, db, bobUser.ID, models.NotificationFollow))
}

func TestRandomUsers(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, _ := syncUser(t, svc, "alice")
	_, bobUser := syncUser(t, svc, "bob")
	_, carolUser := syncUser(t, svc, "carol")

	_, err := svc.ToggleFollow(ctx, alice, bobUser.ID)
	require.NoError(t, err)

	users, err := svc.RandomUsers(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, carolUser.ID, users[0].ID)
	require.NotNil(t, users[0].Followers)
	assert.Zero(t, *users[0].Followers)

	users, err = svc.RandomUsers(ctx, auth.Identity{}, 5)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestNotifications(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, bobUser := syncUser(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice, "hello", "https://img.example.com/p.png")
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	comment, err := svc.AddComment(ctx, bob, post.ID, "hi alice")
	require.NoError(t, err)
	_, err = svc.ToggleFollow(ctx, alice, bobUser.ID)
	require.NoError(t, err)

	list, err := svc.ListNotifications(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.NotificationComment, list[0].Type)
	assert.Equal(t, "bob", list[0].Creator.Username)
	require.NotNil(t, list[0].Comment)
	assert.Equal(t, comment.ID, list[0].Comment.ID)
	require.NotNil(t, list[0].Post)
	assert.Equal(t, post.ID, list[0].Post.ID)
	assert.Equal(t, models.NotificationLike, list[1].Type)
	assert.Nil(t, list[1].Comment)

	bobList, err := svc.ListNotifications(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobList, 1)
	assert.Equal(t, aliceUser.ID, bobList[0].Creator.ID)

	unread, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	// bob cannot mark alice's notifications
	require.NoError(t, svc.MarkNotificationsRead(ctx, bob, []string{list[0].ID, list[1].ID}))
	unread, err = svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, svc.MarkNotificationsRead(ctx, alice, []string{list[0].ID}))
	unread, err = svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	list, err = svc.ListNotifications(ctx, alice)
	require.NoError(t, err)
	assert.True(t, list[0].Read)
	assert.False(t, list[1].Read)

	anon, err := svc.ListNotifications(ctx, auth.Identity{})
	require.NoError(t, err)
	assert.Empty(t, anon)

	assert.ErrorIs(t, svc.MarkNotificationsRead(ctx, auth.Identity{}, []string{list[0].ID}), social.ErrUnauthenticated)
}

func TestProfile(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, aliceUser := syncUser(t, svc, "alice")
	bob, bobUser := syncUser(t, svc, "bob")

	mine, err := svc.CreatePost(ctx, alice, "alice writes", "")
	require.NoError(t, err)
	theirs, err := svc.CreatePost(ctx, bob, "bob writes", "")
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, alice, theirs.ID)
	require.NoError(t, err)
	_, err = svc.ToggleFollow(ctx, bob, aliceUser.ID)
	require.NoError(t, err)

	profile, err := svc.ProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, aliceUser.ID, profile.ID)
	assert.Equal(t, social.Counts{Followers: 1, Following: 0, Posts: 1}, profile.Counts)

	_, err = svc.ProfileByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, social.ErrUserNotFound)

	posts, err := svc.UserPosts(ctx, aliceUser.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, mine.ID, posts[0].ID)

	liked, err := svc.LikedPosts(ctx, aliceUser.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, theirs.ID, liked[0].ID)

	liked, err = svc.LikedPosts(ctx, bobUser.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice, _ := syncUser(t, svc, "alice")

	user, err := svc.UpdateProfile(ctx, alice, social.ProfileInput{
		Name:     "  Alice L.  ",
		Bio:      "Down the rabbit hole",
		Location: "Wonderland",
		Website:  "https://alice.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", user.Name)
	assert.Equal(t, "Wonderland", user.Location)

	// clearing a field is allowed
	user, err = svc.UpdateProfile(ctx, alice, social.ProfileInput{Name: "Alice"})
	require.NoError(t, err)
	assert.Empty(t, user.Website)
	assert.Empty(t, user.Bio)

	_, err = svc.UpdateProfile(ctx, auth.Identity{}, social.ProfileInput{})
	assert.ErrorIs(t, err, social.ErrUnauthenticated)

	_, err = svc.UpdateProfile(ctx, identity("ghost"), social.ProfileInput{})
	assert.ErrorIs(t, err, social.ErrUserNotFound)
}

func TestProfileInputNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      social.ProfileInput
		wantErr bool
	}{
		{"empty", social.ProfileInput{}, false},
		{"http website", social.ProfileInput{Website: "http://example.com"}, false},
		{"name at limit", social.ProfileInput{Name: strings.Repeat("é", 64)}, false},
		{"name too long", social.ProfileInput{Name: strings.Repeat("a", 65)}, true},
		{"bio too long", social.ProfileInput{Bio: strings.Repeat("a", 281)}, true},
		{"location too long", social.ProfileInput{Location: strings.Repeat("a", 101)}, true},
		{"website scheme", social.ProfileInput{Website: "javascript:alert(1)"}, true},
		{"website without host", social.ProfileInput{Website: "https://"}, true},
		{"website too long", social.ProfileInput{Website: "https://example.com/" + strings.Repeat("a", 200)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			if tt.wantErr {
				assert.ErrorIs(t, err, social.ErrInvalidProfile)
				return
			}
			assert.NoError(t, err)
		})
	}
}
