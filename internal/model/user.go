package model

// UserRole is carried in the access token; user records live in the identity service.
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)
