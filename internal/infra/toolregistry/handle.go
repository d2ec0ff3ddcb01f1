package toolregistry

import "mcpmarket/internal/domain"

// Handle is the in-process descriptor of a registered tool. It is either a
// LocalHandle or a RemoteHandle.
type Handle interface {
	ToolID() uint64
	Kind() domain.ToolKind
	ToolName() string
	isHandle()
}

// LocalHandle describes a tool executed in-process from its decoded config.
type LocalHandle struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

func (h LocalHandle) ToolID() uint64 { return h.ID }
func (h LocalHandle) Kind() domain.ToolKind { return domain.ToolKindLocal }
func (h LocalHandle) ToolName() string { return h.Name }
func (LocalHandle) isHandle() {}

// RemoteHandle describes a tool served by a market, carrying its snapshot.
type RemoteHandle struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Metadata    domain.ToolMetadata `json:"metadata"`
}

func (h RemoteHandle) ToolID() uint64 { return h.ID }
func (h RemoteHandle) Kind() domain.ToolKind { return domain.ToolKindRemote }
func (h RemoteHandle) ToolName() string { return h.Name }
func (RemoteHandle) isHandle() {}

// NewHandle decodes the tool config into the variant matching its kind.
func NewHandle(tool domain.LocalTool) (Handle, error) {
	switch tool.Kind {
	case domain.ToolKindLocal:
		config, err := tool.ConfigMap()
		if err != nil {
			return nil, err
		}
		return LocalHandle{ID: tool.ID, Name: tool.Name, Description: tool.Description, Config: config}, nil
	case domain.ToolKindRemote:
		meta, err := domain.ParseToolMetadata(tool.Config)
		if err != nil {
			return nil, err
		}
		return RemoteHandle{ID: tool.ID, Name: tool.Name, Description: tool.Description, Metadata: meta}, nil
	default:
		return nil, domain.E(domain.CodeInvalidArgument, "toolregistry.NewHandle", "unknown tool kind "+string(tool.Kind), domain.ErrInvalidRequest)
	}
}
