package wsserver

import (
	"encoding/json"
	"time"
)

// Inbound command names on the websocket surface. Dispatch happens through
// an exhaustive switch in handleCommand; unknown names get an error ack.
const (
	CmdJoinRoom            = "joinRoom"
	CmdJoinGroup           = "joinGroup"
	CmdSendMessage         = "sendMessage"
	CmdSendGroupMessage    = "sendGroupMessage"
	CmdSendFile            = "sendFile"
	CmdFetchMessages       = "fetchMessages"
	CmdFetchGroupMessages  = "fetchGroupMessages"
	CmdFetchUnseenMessages = "fetchUnseenMessages"
	CmdMarkAsRead          = "markAsRead"
	CmdFetchGroups         = "fetchGroups"
	CmdFetchUsers          = "fetchUsers"
	CmdCreateGroup         = "createGroup"
	CmdAddUserToGroup      = "addUserToGroup"
	CmdKickUserFromGroup   = "kickUserFromGroup"
	CmdLeaveGroup          = "leaveGroup"
	CmdRenameGroup         = "renameGroup"
	CmdReassignAdmin       = "reassignAdmin"
	CmdDeleteGroup         = "deleteGroup"
)

// Reply event names sent only to the requesting session.
const (
	EventMessageHistory      = "messageHistory"
	EventGroupMessageHistory = "groupMessageHistory"
	EventUnseenMessages      = "unseenMessages"
	EventMessageRead         = "messageRead"
	EventGroupList           = "groupList"
	EventUserList            = "userList"
)

// Command is one inbound websocket frame.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinRoomPayload struct {
	UserID string `json:"userId" validate:"required"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId" validate:"required"`
}

type sendMessagePayload struct {
	Content    string `json:"content"`
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	FileURL    string `json:"fileUrl"`
	FileType   string `json:"fileType"`
}

type sendGroupMessagePayload struct {
	Content  string `json:"content"`
	SenderID string `json:"senderId" validate:"required"`
	GroupID  string `json:"groupId" validate:"required"`
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

type sendFilePayload struct {
	FileName   string `json:"fileName" validate:"required"`
	FileType   string `json:"fileType" validate:"required"`
	FileData   string `json:"fileData" validate:"required"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId"`
	GroupID    string `json:"groupId"`
}

type fetchMessagesPayload struct {
	SenderID   string     `json:"senderId" validate:"required"`
	ReceiverID string     `json:"receiverId" validate:"required"`
	Limit      int        `json:"limit"`
	Cursor     *time.Time `json:"cursor"`
}

type fetchGroupMessagesPayload struct {
	GroupID string     `json:"groupId" validate:"required"`
	Limit   int        `json:"limit"`
	Cursor  *time.Time `json:"cursor"`
}

type fetchUnseenPayload struct {
	UserID string `json:"userId" validate:"required"`
}

type markAsReadPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type fetchGroupsPayload struct {
	UserID string `json:"userId" validate:"required"`
}

type createGroupPayload struct {
	TeacherID string   `json:"teacherId" validate:"required"`
	GroupName string   `json:"groupName" validate:"required"`
	MemberIDs []string `json:"memberIds"`
}

type memberActionPayload struct {
	AdminID string `json:"adminId" validate:"required"`
	GroupID string `json:"groupId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

type leaveGroupPayload struct {
	UserID  string `json:"userId" validate:"required"`
	GroupID string `json:"groupId" validate:"required"`
}

type renameGroupPayload struct {
	AdminID      string `json:"adminId" validate:"required"`
	GroupID      string `json:"groupId" validate:"required"`
	NewGroupName string `json:"newGroupName" validate:"required"`
}

type reassignAdminPayload struct {
	AdminID    string `json:"adminId" validate:"required"`
	GroupID    string `json:"groupId" validate:"required"`
	NewAdminID string `json:"newAdminId" validate:"required"`
}

type deleteGroupPayload struct {
	AdminID string `json:"adminId" validate:"required"`
	GroupID string `json:"groupId" validate:"required"`
}
