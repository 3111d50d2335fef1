package models

var ModelTypeRegistry = map[string]interface{}{
	"Comment":      Comment{},
	"Follows":      Follows{},
	"Like":         Like{},
	"Notification": Notification{},
	"Post":         Post{},
	"User":         User{},
}
