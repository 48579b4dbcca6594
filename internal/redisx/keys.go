package redisx

import "time"

const (
	// Unread-count cache: notify:unread:user:{id} / notify:unread:group:{tag}
	KeyUnreadUser  = "notify:unread:user:%s"
	KeyUnreadGroup = "notify:unread:group:%s"
)

var (
	TTLUnreadCount = 30 * time.Second
)
