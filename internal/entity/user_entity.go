package entity

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	Base      `bson:",inline"`
	Firstname string   `bson:"firstname,omitempty" json:"firstname"`
	Name      string   `bson:"name,omitempty" json:"name"`
	Email     string   `bson:"email" json:"email"`
	Password  string   `bson:"password,omitempty" json:"-"`
	Role      UserRole `bson:"role" json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
