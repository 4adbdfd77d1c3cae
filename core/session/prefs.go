package session

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// filePrefs persists preferences as a small JSON file next to the app's
// config; the console analog of the browser's local storage.
type filePrefs struct {
	mu   sync.Mutex
	path string
}

var _ PreferenceStore = (*filePrefs)(nil)

func NewFilePrefs(dir string) PreferenceStore {
	return &filePrefs{path: filepath.Join(dir, "prefs.json")}
}

type prefsData struct {
	RememberMe bool `json:"remember_me"`
}

func (p *filePrefs) read() prefsData {
	var data prefsData
	raw, err := ioutil.ReadFile(p.path)
	if err != nil {
		return data
	}
	_ = json.Unmarshal(raw, &data)
	return data
}

func (p *filePrefs) RememberMe() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read().RememberMe
}

func (p *filePrefs) SetRememberMe(remember bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !remember {
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing prefs")
		}
		return nil
	}

	raw, err := json.Marshal(prefsData{RememberMe: true})
	if err != nil {
		return errors.Wrap(err, "marshalling prefs")
	}
	if err := ioutil.WriteFile(p.path, raw, 0600); err != nil {
		return errors.Wrap(err, "writing prefs")
	}
	return nil
}

// MemPrefs is an in-memory PreferenceStore for tests.
type MemPrefs struct {
	mu       sync.Mutex
	remember bool
}

var _ PreferenceStore = (*MemPrefs)(nil)

func (p *MemPrefs) RememberMe() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remember
}

func (p *MemPrefs) SetRememberMe(remember bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remember = remember
	return nil
}
