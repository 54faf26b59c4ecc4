package database

import "content-forge/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.ContentTask{},
		&model.ContentVersion{},
		&model.MediaRecord{},
		&model.MediaJob{},
	)
}
