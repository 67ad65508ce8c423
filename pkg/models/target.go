// Package models holds gorm-tagged persisted records, adapted from the
// teacher's pkg/models/asset.go Asset shape but narrowed to what an
// SSH/SFTP target needs (the teacher's Asset is a generic tree node covering
// folders, local terminals, SSH hosts and Docker hosts in one table; a
// target here is always one SSH endpoint).
package models

import "time"

// AuthMethod mirrors pool.AuthMethod; kept as a distinct type so this
// package never imports pool (gorm models stay independent of the core).
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "private-key"
	AuthNone       AuthMethod = "none"
)

// Target is the persisted record for one SSH endpoint, matching
// original_source's target row (apis/target.rs / services/target.rs:
// id, name, host, port, user, auth method, secret material).
type Target struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string     `json:"name" gorm:"not null"`
	Host       string     `json:"host" gorm:"not null"`
	Port       int        `json:"port" gorm:"not null;default:22"`
	User       string     `json:"user" gorm:"not null"`
	Method     AuthMethod `json:"method" gorm:"not null"`
	Password   string     `json:"password,omitempty"`
	PrivateKey string     `json:"private_key,omitempty"`
	Passphrase string     `json:"passphrase,omitempty"`
	OSHint     string     `json:"os_hint,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Target) TableName() string { return "targets" }

// Response is the teacher's envelope (pkg/models/asset.go), reused verbatim
// across the HTTP API so every handler, old and new, answers the same shape.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
