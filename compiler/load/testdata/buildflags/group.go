//go:build !hidegroups

package buildflags

//stepgen:builder
type Group struct {
	name string
}

//stepgen:unordered
func (g *Group) Name(name string) {
	g.name = name
}

//stepgen:build
func (g *Group) Build() string {
	return g.name
}
