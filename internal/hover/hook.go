package hover

// Info describes one resolved hover, as passed to hooks.
type Info struct {
	Name       string
	Width      int
	ArchWidth  int
	Attached   bool
	HasValue   bool
	Value      string
	Decimal    string
	Inspecting bool
	Mode       string
	Memory     []string
}

// Hook adds lines to a rendered hover.
type Hook interface {
	OnHover(info Info) ([]string, error)
}

// HookFunc adapts a function to Hook.
type HookFunc func(info Info) ([]string, error)

// OnHover implements Hook.
func (f HookFunc) OnHover(info Info) ([]string, error) {
	return f(info)
}
