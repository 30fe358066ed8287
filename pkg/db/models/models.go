package models

// All lists every gorm-managed table, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&PostLike{},
		&Comment{},
		&Notification{},
		&NotificationRef{},
	}
}
