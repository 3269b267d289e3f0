package consts

const (
	ContextUserID = "user_id"
	ContextRoles  = "roles"
)

const (
	RoleAdmin = "ADMIN"
)

const (
	PostEventPublished = "published"
	PostEventDeleted   = "deleted"
)
