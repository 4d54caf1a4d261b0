package handler

// --- Request / Response types ---
//
// These mirror the contract schemas. They are separate from domain types so
// the JSON contract is not coupled to internal service changes.

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Totp     string `json:"totp"     validate:"max=16"`
}

type authenticationResult struct {
	Token string `json:"token"`
}

type authenticationReply struct {
	Result authenticationResult `json:"result"`
}

type createUserRequest struct {
	Username  string   `json:"username"  validate:"required,max=64"`
	Password  string   `json:"password"  validate:"required,min=8,max=72,maxbytes=72"`
	Email     string   `json:"email"     validate:"omitempty,max=255"`
	FirstName string   `json:"firstName" validate:"max=128"`
	LastName  string   `json:"lastName"  validate:"max=128"`
	TenantID  string   `json:"tenantId"  validate:"omitempty,numeric"`
	Roles     []string `json:"roles"     validate:"max=32,dive,required,max=64"`
}

type createUserResult struct {
	ID string `json:"id"`
}

type createUserReply struct {
	Result createUserResult `json:"result"`
}

type getHelloReply struct {
	Content string `json:"content"`
}

type createHelloRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createHelloReply struct {
	Identifier int32  `json:"identifier"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}
