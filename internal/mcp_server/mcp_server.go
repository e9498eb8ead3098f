package mcp_server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	fs "github.com/AnishMulay/sandfs/internal/file_service"
	"github.com/AnishMulay/sandfs/internal/log_service"
)

const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

// MCPServer exposes a FileService as MCP tools. The engine is not safe for
// concurrent use, so every handler runs under mu.
type MCPServer struct {
	mu  sync.Mutex
	fs  fs.FileService
	ls  log_service.LogService
	srv *server.MCPServer
}

type ToolHandler = server.ToolHandlerFunc

// FileContent is the read_file result.
type FileContent struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
}

func NewMCPServer(fsvc fs.FileService, ls log_service.LogService, version string) *MCPServer {
	m := &MCPServer{
		fs: fsvc,
		ls: ls,
		srv: server.NewMCPServer(
			"sandfs",
			version,
			server.WithToolCapabilities(false),
		),
	}
	m.addTools()
	return m
}

// Serve blocks serving a single client over stdin and stdout.
func (m *MCPServer) Serve() error {
	m.ls.Info(log_service.LogEvent{Message: "Serving MCP tools over stdio"})
	return server.ServeStdio(m.srv)
}

func (m *MCPServer) Server() *server.MCPServer {
	return m.srv
}

func pathArg(desc string) mcp.ToolOption {
	return mcp.WithString("path", mcp.Required(), mcp.Description(desc))
}

func contentArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("encoding",
			mcp.Description("Encoding of content: text (default) or base64"),
			mcp.Enum(EncodingText, EncodingBase64),
		),
	}
}

func (m *MCPServer) addTools() {
	m.add(mcp.NewTool("mkdir",
		mcp.WithDescription("Create a directory"),
		pathArg("Directory to create"),
	), m.handleMkdir)

	m.add(mcp.NewTool("cd",
		mcp.WithDescription("Change the current directory"),
		pathArg("Directory to switch to, absolute or relative"),
	), m.handleCd)

	m.add(mcp.NewTool("ls",
		mcp.WithDescription("List a directory as JSON, sorted by name"),
		mcp.WithString("path", mcp.Description("Directory to list, defaults to the current one")),
	), m.handleLs)

	m.add(mcp.NewTool("pwd",
		mcp.WithDescription("Print the current directory"),
	), m.handlePwd)

	m.add(mcp.NewTool("create_file",
		append([]mcp.ToolOption{
			mcp.WithDescription("Create a new file with the given content"),
			pathArg("File to create"),
		}, contentArgs()...)...,
	), m.handleCreateFile)

	m.add(mcp.NewTool("write_file",
		append([]mcp.ToolOption{
			mcp.WithDescription("Replace the content of an existing file"),
			pathArg("File to overwrite"),
		}, contentArgs()...)...,
	), m.handleWriteFile)

	m.add(mcp.NewTool("read_file",
		mcp.WithDescription("Read a file. Content that is not valid UTF-8 is returned base64 encoded"),
		pathArg("File to read"),
		mcp.WithString("encoding",
			mcp.Description("Force an encoding for the result: text or base64"),
			mcp.Enum(EncodingText, EncodingBase64),
		),
	), m.handleReadFile)

	m.add(mcp.NewTool("delete",
		mcp.WithDescription("Delete a file or an empty directory"),
		pathArg("Entry to delete"),
	), m.handleDelete)

	m.add(mcp.NewTool("stat",
		mcp.WithDescription("Show a file's metadata as JSON"),
		pathArg("File to inspect"),
	), m.handleStat)

	m.add(mcp.NewTool("df",
		mcp.WithDescription("Show volume usage as JSON"),
	), m.handleDf)
}

func (m *MCPServer) add(tool mcp.Tool, handler ToolHandler) {
	m.srv.AddTool(tool, m.locked(tool.Name, handler))
}

// locked wraps handler so that it holds the engine lock.
func (m *MCPServer) locked(name string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.ls.Debug(log_service.LogEvent{
			Message:  "Tool call",
			Metadata: map[string]any{"tool": name},
		})
		return handler(ctx, request)
	}
}

func (m *MCPServer) toolError(tool string, err error) *mcp.CallToolResult {
	m.ls.Warn(log_service.LogEvent{
		Message:  "Tool call failed",
		Metadata: map[string]any{"tool": tool, "error": err.Error()},
	})
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func decodeContent(request mcp.CallToolRequest) ([]byte, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return nil, err
	}
	switch enc := request.GetString("encoding", EncodingText); enc {
	case EncodingText, "":
		return []byte(content), nil
	case EncodingBase64:
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", enc)
	}
}

// --- Handlers ---

func (m *MCPServer) handleMkdir(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.fs.CreateDirectory(path); err != nil {
		return m.toolError("mkdir", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Directory '%s' created", path)), nil
}

func (m *MCPServer) handleCd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.fs.ChangeDirectory(path); err != nil {
		return m.toolError("cd", err), nil
	}
	return mcp.NewToolResultText(m.fs.CurrentPath()), nil
}

func (m *MCPServer) handleLs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", ".")
	entries, err := m.fs.ListDirectory(path)
	if err != nil {
		return m.toolError("ls", err), nil
	}
	return jsonResult(entries)
}

func (m *MCPServer) handlePwd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(m.fs.CurrentPath()), nil
}

func (m *MCPServer) handleCreateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := decodeContent(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.fs.CreateFile(path, data); err != nil {
		return m.toolError("create_file", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("File '%s' created (%d bytes)", path, len(data))), nil
}

func (m *MCPServer) handleWriteFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := decodeContent(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.fs.WriteFile(path, data); err != nil {
		return m.toolError("write_file", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("File '%s' written (%d bytes)", path, len(data))), nil
}

func (m *MCPServer) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := m.fs.ReadFile(path)
	if err != nil {
		return m.toolError("read_file", err), nil
	}

	result := FileContent{Path: path, Encoding: EncodingText, Size: len(data)}
	if request.GetString("encoding", "") == EncodingBase64 || !utf8.Valid(data) {
		result.Encoding = EncodingBase64
		result.Content = base64.StdEncoding.EncodeToString(data)
	} else {
		result.Content = string(data)
	}
	return jsonResult(result)
}

func (m *MCPServer) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.fs.DeleteEntry(path); err != nil {
		return m.toolError("delete", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("'%s' deleted", path)), nil
}

func (m *MCPServer) handleStat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := m.fs.Stat(path)
	if err != nil {
		return m.toolError("stat", err), nil
	}
	return jsonResult(meta)
}

func (m *MCPServer) handleDf(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(m.fs.GetFsStat())
}
