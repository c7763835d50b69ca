package buildflags

// User is built in two steps.
//
//stepgen:builder
type User struct {
	name string
}

//stepgen:ordered 1
func (u *User) Name(name string) {
	u.name = name
}

//stepgen:build
func (u *User) Build() string {
	return u.name
}
