package util

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)
