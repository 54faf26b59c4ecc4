package database

import (
	"fmt"

	"content-forge/app/config"
	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/utils"
)

// InitAdminUser 初始化管理员账户
func InitAdminUser(cfg *config.Config, log *logger.Logger) error {
	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		return fmt.Errorf("管理员账户配置不能为空，请在配置文件中设置 username 和 password")
	}

	var existing model.User
	result := DB.Where("username = ?", cfg.Server.Username).First(&existing)
	if result.Error == nil {
		// 账户已存在，密码变更时同步更新
		if !utils.VerifyPassword(cfg.Server.Password, existing.Password) {
			hashed, err := utils.HashPassword(cfg.Server.Password)
			if err != nil {
				return fmt.Errorf("哈希密码失败: %v", err)
			}
			existing.Password = hashed
			if err := DB.Save(&existing).Error; err != nil {
				return fmt.Errorf("更新管理员账户失败: %v", err)
			}
			log.Infof("管理员 '%s' 密码已更新", cfg.Server.Username)
		}
		return nil
	}

	hashedPassword, err := utils.HashPassword(cfg.Server.Password)
	if err != nil {
		return fmt.Errorf("哈希密码失败: %v", err)
	}

	adminUser := model.User{
		Username: cfg.Server.Username,
		Password: hashedPassword,
		IsActive: true,
	}

	if err := DB.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("创建管理员账户失败: %v", err)
	}

	log.Infof("管理员账户 '%s' 创建成功", cfg.Server.Username)
	return nil
}
