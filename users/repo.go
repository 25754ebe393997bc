package users

type UserRepo interface {
	Upsert(user *User) error
	Delete(userID string) error
	GetByID(userID string) (*User, error)
	GetByEmail(email string) (*User, error)
	List(tenantID string, offset, limit int) ([]*User, error)
}
