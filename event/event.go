// Package event delivers gate notifications to subscribers.
package event

import (
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

const (
	logModule = "event"

	// DefaultBuffer is the channel capacity of a subscription.
	DefaultBuffer = 64
)

var (
	// ErrMuxClosed is returned when Posting on a closed Dispatcher.
	ErrMuxClosed = errors.New("event: dispatcher closed")
	// ErrDuplicateSubscribe is returned when subscribe duplicate type
	ErrDuplicateSubscribe = errors.New("event: subscribe duplicate type")
)

// Event is a time-tagged notification pushed to subscribers.
type Event struct {
	Time time.Time
	Data interface{}
}

// A Dispatcher fans events out to subscriptions by the dynamic type of
// the posted value. Post never blocks: a subscriber whose buffer is full
// misses the event. Any operation called after Stop returns ErrMuxClosed.
//
// The zero value is ready to use.
type Dispatcher struct {
	mutex   sync.RWMutex
	subm    map[reflect.Type][]*Subscription
	stopped bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subm: make(map[reflect.Type][]*Subscription),
	}
}

// Subscribe creates a subscription for events of the given types. The
// subscription's channel is closed when it is unsubscribed or the
// dispatcher is stopped.
func (d *Dispatcher) Subscribe(types ...interface{}) (*Subscription, error) {
	return d.SubscribeBuffered(DefaultBuffer, types...)
}

// SubscribeBuffered is Subscribe with a channel of capacity size.
func (d *Dispatcher) SubscribeBuffered(size int, types ...interface{}) (*Subscription, error) {
	sub := newSubscription(d, size)
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		sub.closed = true
		close(sub.c)
		return sub, nil
	}
	if d.subm == nil {
		d.subm = make(map[reflect.Type][]*Subscription)
	}

	added := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		rtyp := reflect.TypeOf(t)
		if added[rtyp] {
			log.WithFields(log.Fields{"module": logModule, "type": rtyp}).Warn("duplicate type in Subscribe")
			d.remove(sub)
			return nil, ErrDuplicateSubscribe
		}
		added[rtyp] = true
		oldsubs := d.subm[rtyp]
		subs := make([]*Subscription, len(oldsubs)+1)
		copy(subs, oldsubs)
		subs[len(oldsubs)] = sub
		d.subm[rtyp] = subs
	}
	return sub, nil
}

// Post sends ev to all subscriptions registered for its type.
func (d *Dispatcher) Post(ev interface{}) error {
	event := &Event{
		Time: time.Now(),
		Data: ev,
	}
	rtyp := reflect.TypeOf(ev)
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.stopped {
		return ErrMuxClosed
	}

	for _, sub := range d.subm[rtyp] {
		if !sub.deliver(event) {
			log.WithFields(log.Fields{"module": logModule, "type": rtyp}).Debug("subscriber too slow, event dropped")
		}
	}
	return nil
}

// Stop closes every subscription. The dispatcher can no longer be used.
func (d *Dispatcher) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for _, subs := range d.subm {
		for _, sub := range subs {
			sub.close()
		}
	}
	d.subm = nil
	d.stopped = true
}

func (d *Dispatcher) del(s *Subscription) {
	d.mutex.Lock()
	d.remove(s)
	d.mutex.Unlock()
}

// remove requires d.mutex.
func (d *Dispatcher) remove(s *Subscription) {
	for typ, subs := range d.subm {
		if pos := find(subs, s); pos >= 0 {
			if len(subs) == 1 {
				delete(d.subm, typ)
			} else {
				d.subm[typ] = posdelete(subs, pos)
			}
		}
	}
}

func find(slice []*Subscription, item *Subscription) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

func posdelete(slice []*Subscription, pos int) []*Subscription {
	news := make([]*Subscription, len(slice)-1)
	copy(news[:pos], slice[:pos])
	copy(news[pos:], slice[pos+1:])
	return news
}

// Subscription is a subscription established through a Dispatcher.
type Subscription struct {
	d *Dispatcher

	mu      sync.Mutex
	c       chan *Event
	closed  bool
	dropped uint64
}

func newSubscription(d *Dispatcher, size int) *Subscription {
	return &Subscription{
		d: d,
		c: make(chan *Event, size),
	}
}

func (s *Subscription) Chan() <-chan *Event {
	return s.c
}

func (s *Subscription) Unsubscribe() {
	s.d.del(s)
	s.close()
}

func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Dropped returns how many events missed this subscription.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.c)
}

func (s *Subscription) deliver(event *Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.c <- event:
		return true
	default:
		s.dropped++
		return false
	}
}
