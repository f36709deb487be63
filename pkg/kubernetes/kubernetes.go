// Package kubernetes provides an optionz.Watcher for one data key of a
// Kubernetes ConfigMap or Secret using the Watch API.
package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/optionz"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

// ResourceType specifies the type of Kubernetes resource to watch.
type ResourceType int

const (
	// ConfigMap watches a ConfigMap resource.
	ConfigMap ResourceType = iota
	// Secret watches a Secret resource.
	Secret
)

func (rt ResourceType) String() string {
	if rt == Secret {
		return "secret"
	}
	return "configmap"
}

// DefaultRetryDelay is how long the watcher waits before re-establishing a
// failed watch.
const DefaultRetryDelay = time.Second

// Watcher streams one data key of a ConfigMap or Secret.
type Watcher struct {
	client       kubernetes.Interface
	namespace    string
	name         string
	key          string
	resourceType ResourceType
	retryDelay   time.Duration
	clock        clockz.Clock
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithResourceType sets the resource type to watch.
// Defaults to ConfigMap.
func WithResourceType(rt ResourceType) Option {
	return func(w *Watcher) {
		w.resourceType = rt
	}
}

// WithRetryDelay sets the pause before a failed watch is re-established.
func WithRetryDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.retryDelay = d
	}
}

// WithClock sets a custom clock for retry delays.
func WithClock(clock clockz.Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// New creates a Watcher for key in the named resource.
func New(client kubernetes.Interface, namespace, name, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client:       client,
		namespace:    namespace,
		name:         name,
		key:          key,
		resourceType: ConfigMap,
		retryDelay:   DefaultRetryDelay,
		clock:        clockz.RealClock,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Binding returns an unstarted optionz.Binding of name to this watcher.
func (w *Watcher) Binding(name string) *optionz.Binding {
	return optionz.NewBinding(name, w)
}

// Watch reads the resource, which must exist, and emits the key's value
// (if present) followed by its value after every modification. Deletions
// are ignored. A failed watch is re-established from a fresh read.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	value, rv, err := w.read(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)

		for {
			if value != nil {
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}

			err := w.follow(ctx, rv, out)
			for {
				if ctx.Err() != nil {
					return
				}
				capitan.Emit(ctx, optionz.WatcherFailed,
					optionz.KeyWatcherType.Field("kubernetes"),
					optionz.KeyError.Field(err.Error()),
				)
				if !w.pause(ctx) {
					return
				}
				if value, rv, err = w.read(ctx); err == nil {
					break
				}
			}
		}
	}()

	return out, nil
}

// pause waits out the retry delay. It returns false if ctx ends first.
func (w *Watcher) pause(ctx context.Context) bool {
	timer := w.clock.NewTimer(w.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C():
		return true
	case <-ctx.Done():
		return false
	}
}

// follow streams modifications from resourceVersion until the watch ends
// and returns why.
func (w *Watcher) follow(ctx context.Context, resourceVersion string, out chan<- []byte) error {
	opts := metav1.ListOptions{
		FieldSelector:   fmt.Sprintf("metadata.name=%s", w.name),
		ResourceVersion: resourceVersion,
	}

	var (
		watcher watch.Interface
		err     error
	)
	if w.resourceType == ConfigMap {
		watcher, err = w.client.CoreV1().ConfigMaps(w.namespace).Watch(ctx, opts)
	} else {
		watcher, err = w.client.CoreV1().Secrets(w.namespace).Watch(ctx, opts)
	}
	if err != nil {
		return fmt.Errorf("watch %s %s/%s: %w", w.resourceType, w.namespace, w.name, err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return errors.New("watch channel closed")
			}

			switch event.Type {
			case watch.Error:
				return apierrors.FromObject(event.Object)
			case watch.Added, watch.Modified:
			default:
				continue
			}

			value, ok := w.extractValue(event.Object)
			if !ok {
				continue
			}
			select {
			case out <- value:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// read returns the key's value, or nil when the key is absent, and the
// resource version it was read at.
func (w *Watcher) read(ctx context.Context) ([]byte, string, error) {
	var (
		obj runtime.Object
		rv  string
		err error
	)
	if w.resourceType == ConfigMap {
		var cm *corev1.ConfigMap
		cm, err = w.client.CoreV1().ConfigMaps(w.namespace).Get(ctx, w.name, metav1.GetOptions{})
		if err == nil {
			obj, rv = cm, cm.ResourceVersion
		}
	} else {
		var secret *corev1.Secret
		secret, err = w.client.CoreV1().Secrets(w.namespace).Get(ctx, w.name, metav1.GetOptions{})
		if err == nil {
			obj, rv = secret, secret.ResourceVersion
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("get %s %s/%s: %w", w.resourceType, w.namespace, w.name, err)
	}

	value, _ := w.extractValue(obj)
	return value, rv, nil
}

// extractValue returns the key's value from obj. It reports false when obj
// is not the watched resource or lacks the key.
func (w *Watcher) extractValue(obj interface{}) ([]byte, bool) {
	switch res := obj.(type) {
	case *corev1.ConfigMap:
		if w.resourceType != ConfigMap || res.Name != w.name {
			return nil, false
		}
		if value, ok := res.Data[w.key]; ok {
			return []byte(value), true
		}
		if value, ok := res.BinaryData[w.key]; ok {
			return value, true
		}
	case *corev1.Secret:
		if w.resourceType != Secret || res.Name != w.name {
			return nil, false
		}
		if value, ok := res.Data[w.key]; ok {
			return value, true
		}
		if value, ok := res.StringData[w.key]; ok {
			return []byte(value), true
		}
	}
	return nil, false
}

var _ optionz.Watcher = (*Watcher)(nil)
