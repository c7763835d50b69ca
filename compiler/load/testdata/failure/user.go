package failure

//stepgen:builder
type User struct {
	name string
}

//stepgen:ordered first
func (u *User) Name(name string) {
	u.name = name
}

//stepgen:build
func (u *User) Build() string {
	return u.name
}

// Valid is not affected by the malformed User builder.
//
//stepgen:builder
type Valid struct{}

//stepgen:build
func (Valid) Build() int { return 1 }
