package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/covenant-labs/vaultd/store"
	"github.com/covenant-labs/vaultd/vault"
)

const filename = "vaults.json"

type fileStore struct {
	lock     sync.Mutex
	filePath string
}

// NewVaultStore opens a JSON file store under baseDir, creating the
// directory and an empty file on first use.
func NewVaultStore(baseDir string) (store.Store, error) {
	datadir := cleanAndExpandPath(baseDir)
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}
	filePath := filepath.Join(datadir, filename)

	s := &fileStore{filePath: filePath}
	if _, err := s.read(); err != nil {
		return nil, fmt.Errorf("failed to open file store: %s", err)
	}

	return s, nil
}

func (s *fileStore) Save(_ context.Context, snapshot *vault.Snapshot) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	vaults, err := s.read()
	if err != nil {
		return err
	}
	vaults[snapshot.Name] = *snapshot
	return s.write(vaults)
}

func (s *fileStore) Get(_ context.Context, name string) (*vault.Snapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	vaults, err := s.read()
	if err != nil {
		return nil, err
	}
	snapshot, ok := vaults[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrVaultNotFound, name)
	}
	return &snapshot, nil
}

func (s *fileStore) List(_ context.Context) ([]vault.Snapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	vaults, err := s.read()
	if err != nil {
		return nil, err
	}
	list := make([]vault.Snapshot, 0, len(vaults))
	for _, snapshot := range vaults {
		list = append(list, snapshot)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (s *fileStore) Delete(_ context.Context, name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	vaults, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := vaults[name]; !ok {
		return fmt.Errorf("%w: %s", store.ErrVaultNotFound, name)
	}
	delete(vaults, name)
	return s.write(vaults)
}

func (s *fileStore) Close() error {
	return nil
}

func (s *fileStore) read() (map[string]vault.Snapshot, error) {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := s.write(map[string]vault.Snapshot{}); err != nil {
			return nil, err
		}
		return map[string]vault.Snapshot{}, nil
	}

	vaults := map[string]vault.Snapshot{}
	if err := json.Unmarshal(file, &vaults); err != nil {
		return nil, err
	}
	return vaults, nil
}

func (s *fileStore) write(vaults map[string]vault.Snapshot) error {
	buf, err := json.Marshal(vaults)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, buf, 0644)
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
