package handler

import (
	"pingchat/internal/app/chat"
	"pingchat/internal/app/storage"
	"pingchat/internal/app/store"
	"pingchat/internal/configs"
)

// AppDeps bundles the collaborators the HTTP surface needs.
type AppDeps struct {
	Broker         *chat.Broker
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Store          store.Store
}
