package chat

import "time"

// Role classifies a user for authorization decisions.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Privileged reports whether the role may create groups and be assigned
// as a group admin.
func (r Role) Privileged() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// User is an identity record. The chat core references users but never
// mutates them.
type User struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      Role      `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Group is a named chat room with exactly one admin user.
type Group struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	AdminID   string    `gorm:"size:36;not null;index" json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for Group.
func (Group) TableName() string {
	return "groups"
}

// GroupMembership joins a User to a Group. Unique per (group, user) pair;
// duplicate adds are no-ops.
type GroupMembership struct {
	GroupID  string    `gorm:"primarykey;size:36" json:"groupId"`
	UserID   string    `gorm:"primarykey;size:36" json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// TableName returns the table name for GroupMembership.
func (GroupMembership) TableName() string {
	return "group_memberships"
}

// MessageTTL is the default lifetime of a message.
const MessageTTL = 24 * time.Hour

// Message is the core transactional entity. Exactly one of ReceiverID and
// GroupID is set; the relay enforces this, not the store.
type Message struct {
	ID         string    `gorm:"primarykey;size:36" json:"id"`
	Content    string    `gorm:"size:5000" json:"content,omitempty"`
	SenderID   string    `gorm:"size:36;not null;index" json:"senderId"`
	ReceiverID *string   `gorm:"size:36;index" json:"receiverId,omitempty"`
	GroupID    *string   `gorm:"size:36;index" json:"groupId,omitempty"`
	FileURL    string    `gorm:"size:500" json:"fileUrl,omitempty"`
	FileType   string    `gorm:"size:100" json:"fileType,omitempty"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	ExpiresAt  time.Time `gorm:"index" json:"expiresAt"`
}

// TableName returns the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// Destination returns the conversation this message belongs to.
func (m Message) Destination() (Destination, error) {
	return destinationFromRow(m.ReceiverID, m.GroupID)
}

// Expired reports whether the message is past its TTL at the given time.
func (m Message) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}
