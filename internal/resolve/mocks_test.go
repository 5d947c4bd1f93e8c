package resolve

import (
	"fmt"

	"github.com/digitalocean/go-libvirt"
)

// mockHostClient is a mock implementation of HostClient for testing.
type mockHostClient struct {
	hostname  string
	uri       string
	version   uint64
	failOn    string
	callCount int
}

func (m *mockHostClient) fail(call string) error {
	if m.failOn == call {
		return fmt.Errorf("mock %s failure", call)
	}
	return nil
}

func (m *mockHostClient) ConnectGetHostname() (string, error) {
	m.callCount++
	if err := m.fail("hostname"); err != nil {
		return "", err
	}
	return m.hostname, nil
}

func (m *mockHostClient) ConnectGetUri() (string, error) {
	m.callCount++
	if err := m.fail("uri"); err != nil {
		return "", err
	}
	return m.uri, nil
}

func (m *mockHostClient) ConnectGetLibVersion() (uint64, error) {
	m.callCount++
	if err := m.fail("version"); err != nil {
		return 0, err
	}
	return m.version, nil
}

// mockPoolClient is a mock implementation of PoolClient for testing.
type mockPoolClient struct {
	pools  map[string]string // pool name -> XML description
	xmlErr error
}

func newMockPoolClient() *mockPoolClient {
	return &mockPoolClient{pools: make(map[string]string)}
}

func (m *mockPoolClient) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	if _, ok := m.pools[name]; !ok {
		return libvirt.StoragePool{}, fmt.Errorf("storage pool not found: %s", name)
	}
	return libvirt.StoragePool{Name: name}, nil
}

func (m *mockPoolClient) StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error) {
	if m.xmlErr != nil {
		return "", m.xmlErr
	}
	xml, ok := m.pools[pool.Name]
	if !ok {
		return "", fmt.Errorf("storage pool not found: %s", pool.Name)
	}
	return xml, nil
}
