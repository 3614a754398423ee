package auth

// Known OAuth scopes used by the deal platform.
const (
	ScopeDealsWrite = "deals:write"
	ScopeDealsRead  = "deals:read"
)
