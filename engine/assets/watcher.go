package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Source extensions that trigger a shader rebuild when written to.
var shaderExtensions = map[string]struct{}{
	".vert": {},
	".frag": {},
	".geom": {},
	".comp": {},
	".tesc": {},
	".tese": {},
}

/**
 * @brief Watches a shader directory tree and reports source changes.
 *
 * Change notifications are delivered on an internal goroutine; the registered
 * callback must hand off to the render thread itself if it needs to.
 */
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	onChange func(path string)

	mutex    sync.Mutex
	done     chan struct{}
	isClosed bool
}

func NewShaderWatcher(onChange func(path string)) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderWatcher{
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts watching the named directory and all sub-directories.
func (sw *ShaderWatcher) Watch(dir string) error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isClosed {
		return errors.New("shader watcher already closed")
	}
	if err := sw.watchRecursive(dir); err != nil {
		return err
	}

	go sw.start()
	return nil
}

func (sw *ShaderWatcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (sw *ShaderWatcher) start() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			// New sub-directories join the watch; shader sources fire the
			// callback.
			if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
				if err := sw.fsnotify.Add(event.Name); err != nil {
					core.LogWarn("failed to watch new directory %s: %s", event.Name, err)
				}
				continue
			}
			if _, ok := shaderExtensions[strings.ToLower(filepath.Ext(event.Name))]; !ok {
				continue
			}
			core.LogInfo("shader source changed: %s", event.Name)
			sw.onChange(event.Name)
		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher error: %s", err)
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isClosed {
		return nil
	}
	sw.isClosed = true
	close(sw.done)
	return sw.fsnotify.Close()
}
