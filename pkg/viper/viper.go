// Package viper feeds options from a *viper.Viper instance.
//
// Viper already owns parsing and merging, so a Source is a change source
// plus a configure action rather than a byte-level watcher:
//
//	v := viper.New()
//	v.SetConfigFile("app.yaml")
//	_ = v.ReadInConfig()
//
//	src := optionzviper.New(v, optionz.DefaultName, "server")
//	optionzviper.Bind(reg, src)
//	src.Watch()
package viper

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/zoobzio/optionz"
)

// Source exposes one viper subtree as the options named name.
type Source struct {
	v      *viper.Viper
	key    string
	reload *optionz.ReloadSource
	once   sync.Once
}

// New creates a Source reading key from v for the options named name. An
// empty key reads the whole configuration.
func New(v *viper.Viper, name, key string) *Source {
	return &Source{
		v:      v,
		key:    key,
		reload: optionz.NewReloadSource(name),
	}
}

// Name returns the options name this source configures.
func (s *Source) Name() string {
	return s.reload.Name()
}

// ChangeToken returns the token for the current configuration.
func (s *Source) ChangeToken() optionz.ChangeToken {
	return s.reload.ChangeToken()
}

// Notify signals that the viper configuration changed.
func (s *Source) Notify() {
	s.reload.Reload()
}

// Watch starts viper's config file watching and calls Notify after every
// reload. Viper keeps a single change handler, so Watch replaces any set
// with OnConfigChange. Later calls do nothing.
func (s *Source) Watch() {
	s.once.Do(func() {
		s.v.OnConfigChange(func(fsnotify.Event) {
			s.Notify()
		})
		s.v.WatchConfig()
	})
}

// Unmarshal decodes the source's subtree onto opts. Fields absent from the
// configuration keep their current values.
func (s *Source) Unmarshal(opts any) error {
	var err error
	if s.key == "" {
		err = s.v.Unmarshal(opts)
	} else {
		err = s.v.UnmarshalKey(s.key, opts)
	}
	if err != nil {
		return fmt.Errorf("unmarshal viper key %q: %w", s.key, err)
	}
	return nil
}

// Bind registers s on reg as both a change source and a configure action
// for s.Name().
func Bind[T any](reg *optionz.Registry[T], s *Source) *optionz.Registry[T] {
	reg.Configure(s.Name(), func(opts *T) error {
		return s.Unmarshal(opts)
	})
	return reg.AddChangeTokenSource(s)
}

var _ optionz.ChangeTokenSource = (*Source)(nil)
