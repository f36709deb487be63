package optionz

// SetupPipeline applies configure actions, then post-configure actions, to a
// single instance. Each pass keeps registration order across wildcard and
// named registrations.
type SetupPipeline[T any] struct {
	actions []setupAction[T]
}

// Run mutates opts for name. The first action error aborts the pipeline and
// is returned as is.
func (p *SetupPipeline[T]) Run(name string, opts *T) error {
	for _, s := range []stage{stageConfigure, stagePostConfigure} {
		for _, a := range p.actions {
			if a.stage != s || !a.appliesTo(name) {
				continue
			}
			if err := a.fn(name, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of registered actions for every name.
func (p *SetupPipeline[T]) Len() int {
	return len(p.actions)
}
