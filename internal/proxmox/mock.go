package proxmox

import "context"

// MockClient is a test double for Client. Unset funcs return zero values.
type MockClient struct {
	VersionFunc           func(ctx context.Context) (string, error)
	NodesFunc             func(ctx context.Context) ([]Node, error)
	NextVMIDFunc          func(ctx context.Context) (int, error)
	NodeStorageFunc       func(ctx context.Context, node string) ([]Storage, error)
	StorageContentFunc    func(ctx context.Context, node, storage string) ([]Volume, error)
	ApplianceCatalogFunc  func(ctx context.Context, node string) ([]Appliance, error)
	DownloadApplianceFunc func(ctx context.Context, node, storage, template string) (string, error)
	NodeTasksFunc         func(ctx context.Context, node string, since int64, limit int) ([]Task, error)
	TaskStatusFunc        func(ctx context.Context, node, upid string) (TaskStatus, error)
	TaskLogFunc           func(ctx context.Context, node, upid string, start, limit int) ([]TaskLogLine, error)
	ListTokensFunc        func(ctx context.Context, user string) ([]TokenInfo, error)
	CreateTokenFunc       func(ctx context.Context, user, tokenID string, privsep bool, comment string) (string, error)
	DeleteTokenFunc       func(ctx context.Context, user, tokenID string) error
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Version(ctx context.Context) (string, error) {
	if m.VersionFunc == nil {
		return "", nil
	}
	return m.VersionFunc(ctx)
}

func (m *MockClient) Nodes(ctx context.Context) ([]Node, error) {
	if m.NodesFunc == nil {
		return nil, nil
	}
	return m.NodesFunc(ctx)
}

func (m *MockClient) NextVMID(ctx context.Context) (int, error) {
	if m.NextVMIDFunc == nil {
		return 0, nil
	}
	return m.NextVMIDFunc(ctx)
}

func (m *MockClient) NodeStorage(ctx context.Context, node string) ([]Storage, error) {
	if m.NodeStorageFunc == nil {
		return nil, nil
	}
	return m.NodeStorageFunc(ctx, node)
}

func (m *MockClient) StorageContent(ctx context.Context, node, storage string) ([]Volume, error) {
	if m.StorageContentFunc == nil {
		return nil, nil
	}
	return m.StorageContentFunc(ctx, node, storage)
}

func (m *MockClient) ApplianceCatalog(ctx context.Context, node string) ([]Appliance, error) {
	if m.ApplianceCatalogFunc == nil {
		return nil, nil
	}
	return m.ApplianceCatalogFunc(ctx, node)
}

func (m *MockClient) DownloadAppliance(ctx context.Context, node, storage, template string) (string, error) {
	if m.DownloadApplianceFunc == nil {
		return "", nil
	}
	return m.DownloadApplianceFunc(ctx, node, storage, template)
}

func (m *MockClient) NodeTasks(ctx context.Context, node string, since int64, limit int) ([]Task, error) {
	if m.NodeTasksFunc == nil {
		return nil, nil
	}
	return m.NodeTasksFunc(ctx, node, since, limit)
}

func (m *MockClient) TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error) {
	if m.TaskStatusFunc == nil {
		return TaskStatus{}, nil
	}
	return m.TaskStatusFunc(ctx, node, upid)
}

func (m *MockClient) TaskLog(ctx context.Context, node, upid string, start, limit int) ([]TaskLogLine, error) {
	if m.TaskLogFunc == nil {
		return nil, nil
	}
	return m.TaskLogFunc(ctx, node, upid, start, limit)
}

func (m *MockClient) ListTokens(ctx context.Context, user string) ([]TokenInfo, error) {
	if m.ListTokensFunc == nil {
		return nil, nil
	}
	return m.ListTokensFunc(ctx, user)
}

func (m *MockClient) CreateToken(ctx context.Context, user, tokenID string, privsep bool, comment string) (string, error) {
	if m.CreateTokenFunc == nil {
		return "", nil
	}
	return m.CreateTokenFunc(ctx, user, tokenID, privsep, comment)
}

func (m *MockClient) DeleteToken(ctx context.Context, user, tokenID string) error {
	if m.DeleteTokenFunc == nil {
		return nil
	}
	return m.DeleteTokenFunc(ctx, user, tokenID)
}
