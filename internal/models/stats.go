package models

// Stats 各表计数（用于状态面板）
type Stats struct {
	Admins        int64 `json:"admins"`
	Keywords      int64 `json:"keywords"`
	SearchGroups  int64 `json:"search_groups"`
	PrivateGroups int64 `json:"private_groups"`
}
