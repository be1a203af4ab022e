package report

type EventKind int

const (
	CloneCreated EventKind = iota
	OriginalResized
	ImageDeleted
	DirDeleted
	TargetFailed
)

type Event struct {
	Kind    EventKind
	Clone   Clone
	Path    string
	Failure Failure
}

// Collector owns a Summary. Concurrent workers Send events; a single
// goroutine applies them, so Summary is never shared.
type Collector struct {
	events   chan Event
	done     chan struct{}
	summary  Summary
	progress func(Summary)
}

// NewCollector starts the aggregator. progress, if set, is called from the
// aggregator goroutine after every event.
func NewCollector(progress func(Summary)) *Collector {
	c := &Collector{
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		progress: progress,
	}
	go c.run()
	return c
}

func (c *Collector) run() {
	defer close(c.done)
	for e := range c.events {
		c.apply(e)
		if c.progress != nil {
			c.progress(c.summary)
		}
	}
}

func (c *Collector) apply(e Event) {
	switch e.Kind {
	case CloneCreated:
		c.summary.NewClones = append(c.summary.NewClones, e.Clone)
	case OriginalResized:
		c.summary.ResizedOriginals = append(c.summary.ResizedOriginals, e.Path)
	case ImageDeleted:
		c.summary.DeletedImages = append(c.summary.DeletedImages, e.Path)
	case DirDeleted:
		c.summary.DeletedDirs = append(c.summary.DeletedDirs, e.Path)
	case TargetFailed:
		c.summary.Failed = append(c.summary.Failed, e.Failure)
	}
}

// Send must not be called after Close.
func (c *Collector) Send(e Event) {
	c.events <- e
}

func (c *Collector) Clone(file string, quality int, bytes int64) {
	c.Send(Event{Kind: CloneCreated, Clone: Clone{File: file, Quality: quality, Bytes: bytes}})
}

func (c *Collector) Fail(file string, err error) {
	c.Send(Event{Kind: TargetFailed, Failure: Failure{File: file, Error: err.Error()}})
}

// Close drains pending events and returns the final Summary.
func (c *Collector) Close() Summary {
	close(c.events)
	<-c.done
	return c.summary
}
