package servent

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/message"
	"p2pindex/util"
)

const SAMPLE_FILE_NAME = "test.txt"
const SAMPLE_FILE_CONTENT = "This is a test file"

// SharedFileSet is the set of regular files a servent offers, taken from
// the top level of its shared directory.
type SharedFileSet struct {
	dir    string
	names  *util.ConcurrentSlice
	logger *zap.Logger
}

func NewSharedFileSet(dir string, logger *zap.Logger) (*SharedFileSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating shared dir %s", dir)
	}

	fileInfos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shared dir %s", dir)
	}

	names := util.NewConcurrentSlice()
	for _, fileInfo := range fileInfos {
		if fileInfo.Mode().IsRegular() {
			names.AppendUnique(fileInfo.Name())
		}
	}

	return &SharedFileSet{dir: dir, names: names, logger: logger.Named("shared")}, nil
}

func (s *SharedFileSet) Dir() string {
	return s.dir
}

func (s *SharedFileSet) Names() []string {
	return s.names.Values()
}

// Open returns the named shared file and its size. Names that are not a
// single path element, and anything that is not a regular file, are
// reported as message.ErrFileNotFound.
func (s *SharedFileSet) Open(name string) (*os.File, int64, error) {
	if !ValidFileName(name) {
		return nil, 0, errors.Wrapf(message.ErrFileNotFound, "rejected name %q", name)
	}

	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, 0, errors.Wrap(message.ErrFileNotFound, err.Error())
	}

	fileInfo, err := file.Stat()
	if err != nil || !fileInfo.Mode().IsRegular() {
		file.Close()
		return nil, 0, errors.Wrapf(message.ErrFileNotFound, "%q is not a regular file", name)
	}

	return file, fileInfo.Size(), nil
}

// Watch keeps the set in sync with the shared directory until ctx is
// cancelled. onAdded is called for every file that newly appears.
func (s *SharedFileSet) Watch(ctx context.Context, onAdded func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return errors.Wrapf(err, "watching %s", s.dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.logger.Debug("File event", zap.Stringer("event", event))

			name := filepath.Base(event.Name)
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if s.names.DeleteValue(name) {
					s.logger.Info("Shared file removed", zap.String("file", name))
				}

			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				fileInfo, err := os.Stat(event.Name)
				if err != nil || !fileInfo.Mode().IsRegular() {
					continue
				}
				if s.names.AppendUnique(name) {
					s.logger.Info("Shared file added", zap.String("file", name))
					if onAdded != nil {
						onAdded(name)
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("Error watching the shared dir", zap.Error(err))
		}
	}
}

// ValidFileName reports whether name can be used as a file name inside the
// shared or downloads directory without escaping it.
func ValidFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// EnsureSampleFile creates test.txt when dir holds no files, so a fresh
// servent has something to offer.
func EnsureSampleFile(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, errors.Wrapf(err, "creating %s", dir)
	}

	fileInfos, err := ioutil.ReadDir(dir)
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", dir)
	}
	if len(fileInfos) > 0 {
		return false, nil
	}

	err = ioutil.WriteFile(filepath.Join(dir, SAMPLE_FILE_NAME), []byte(SAMPLE_FILE_CONTENT), 0644)
	if err != nil {
		return false, errors.Wrap(err, "writing sample file")
	}

	return true, nil
}
