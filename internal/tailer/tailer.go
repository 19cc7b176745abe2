// Package tailer follows watched files and emits newly appended lines,
// resuming from checkpointed offsets and surviving rotation.
package tailer

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alexsavio/cor-cli/internal/model"
	"github.com/alexsavio/cor-cli/internal/watcher"
)

// Tailer converts watcher events into RawLine values.
type Tailer struct {
	mu     sync.Mutex
	files  map[string]*tailedFile
	out    chan model.RawLine
	ckpt   *Checkpoint
	events <-chan watcher.Event
	watch  *watcher.Watcher
}

type tailedFile struct {
	file   *os.File
	offset int64
}

// New creates a Tailer consuming events from the given Watcher.
func New(w *watcher.Watcher, ckpt *Checkpoint) *Tailer {
	return &Tailer{
		files:  make(map[string]*tailedFile),
		out:    make(chan model.RawLine, 512),
		ckpt:   ckpt,
		events: w.Events,
		watch:  w,
	}
}

// Lines returns the channel carrying appended lines.
func (t *Tailer) Lines() <-chan model.RawLine {
	return t.out
}

// Start opens the watched files and processes events until the context is
// cancelled. Offsets are checkpointed periodically and on shutdown.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)

	for _, p := range t.watch.Paths() {
		t.open(p)
	}

	saveTicker := time.NewTicker(5 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.saveCheckpoint()
			t.closeAll()
			return

		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.handleEvent(ev)

		case <-saveTicker.C:
			t.saveCheckpoint()
		}
	}
}

func (t *Tailer) handleEvent(ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readAppended(ev.Path)

	case ev.Op&fsnotify.Create != 0:
		// New file at a watched path, usually post-rotation.
		t.open(ev.Path)
		t.readAppended(ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		t.closeFile(ev.Path)
		go t.reconnect(ev.Path)
	}
}

// open starts tracking a file, resuming from the checkpointed offset when
// one exists and from end-of-file otherwise.
func (t *Tailer) open(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("tailer: cannot open %s: %v", path, err)
		return
	}

	var offset int64
	if saved, ok := t.ckpt.Get(path); ok {
		offset = saved
	} else {
		offset, _ = f.Seek(0, io.SeekEnd)
	}
	f.Seek(offset, io.SeekStart)

	t.files[path] = &tailedFile{file: f, offset: offset}
}

// readAppended reads from the last offset to EOF and emits complete lines.
func (t *Tailer) readAppended(path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}

	scanner := bufio.NewScanner(tf.file)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		t.out <- model.RawLine{Text: scanner.Text(), Source: path}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("tailer: read error on %s: %v", path, err)
	}

	pos, _ := tf.file.Seek(0, io.SeekCurrent)
	tf.offset = pos
	t.ckpt.Set(path, pos)
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a rotated file to reappear, giving up after 5 tries.
func (t *Tailer) reconnect(path string) {
	for i := 0; i < 5; i++ {
		time.Sleep(1 * time.Second)
		if _, err := os.Stat(path); err == nil {
			log.Printf("tailer: reconnected to rotated file %s", path)
			_ = t.watch.ReWatch(path)
			t.open(path)
			return
		}
	}
	log.Printf("tailer: gave up reconnecting to %s", path)
}

func (t *Tailer) saveCheckpoint() {
	if err := t.ckpt.Save(); err != nil {
		log.Printf("tailer: checkpoint save failed: %v", err)
	}
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
