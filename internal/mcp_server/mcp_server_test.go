package mcp_server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bd "github.com/AnishMulay/sandfs/internal/block_device"
	devmem "github.com/AnishMulay/sandfs/internal/block_device/inmemory"
	fs "github.com/AnishMulay/sandfs/internal/file_service"
	"github.com/AnishMulay/sandfs/internal/file_service/simple"
	logmem "github.com/AnishMulay/sandfs/internal/log_service/inmemory"
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
	storemem "github.com/AnishMulay/sandfs/internal/snapshot_service/inmemory"
)

func newTestServer(t *testing.T) (*MCPServer, *simple.SimpleFileService) {
	t.Helper()
	dev, err := devmem.NewInMemoryBlockDevice(bd.Geometry{BlockSize: 16, NumBlocks: 64})
	require.NoError(t, err)
	logs := logmem.NewInMemoryLogService()
	svc := simple.NewSimpleFileService(dev, storemem.NewInMemorySnapshotStore(), logs)
	require.NoError(t, svc.Start())
	return NewMCPServer(svc, logs, "test"), svc
}

func call(t *testing.T, handler ToolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestTools_DirectoryFlow(t *testing.T) {
	m, _ := newTestServer(t)

	res := call(t, m.handleMkdir, map[string]any{"path": "docs"})
	assert.False(t, res.IsError)

	res = call(t, m.handleCd, map[string]any{"path": "docs"})
	assert.Equal(t, "/docs", text(t, res))

	res = call(t, m.handlePwd, nil)
	assert.Equal(t, "/docs", text(t, res))

	call(t, m.handleMkdir, map[string]any{"path": "/b"})
	call(t, m.handleMkdir, map[string]any{"path": "/a"})
	res = call(t, m.handleLs, map[string]any{"path": "/"})
	require.False(t, res.IsError)

	var entries []ms.DirEntry
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "docs", entries[2].Name)
	assert.Equal(t, ms.TypeDirectory, entries[2].Type)
}

func TestTools_FileContent(t *testing.T) {
	m, _ := newTestServer(t)

	res := call(t, m.handleCreateFile, map[string]any{"path": "note", "content": "hello tools"})
	require.False(t, res.IsError, text(t, res))

	res = call(t, m.handleReadFile, map[string]any{"path": "note"})
	var got FileContent
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, FileContent{Path: "note", Encoding: EncodingText, Content: "hello tools", Size: 11}, got)

	res = call(t, m.handleWriteFile, map[string]any{"path": "note", "content": "replaced"})
	require.False(t, res.IsError)

	res = call(t, m.handleReadFile, map[string]any{"path": "note", "encoding": EncodingBase64})
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, EncodingBase64, got.Encoding)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("replaced")), got.Content)
}

func TestTools_BinaryContent(t *testing.T) {
	m, svc := newTestServer(t)
	raw := []byte{0x00, 0xff, 0xfe, 0x01}

	res := call(t, m.handleCreateFile, map[string]any{
		"path":     "bin",
		"content":  base64.StdEncoding.EncodeToString(raw),
		"encoding": EncodingBase64,
	})
	require.False(t, res.IsError)

	data, err := svc.ReadFile("bin")
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	res = call(t, m.handleReadFile, map[string]any{"path": "bin"})
	var got FileContent
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, EncodingBase64, got.Encoding)
	decoded, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	res = call(t, m.handleCreateFile, map[string]any{"path": "bad", "content": "!!", "encoding": EncodingBase64})
	assert.True(t, res.IsError)
}

func TestTools_Errors(t *testing.T) {
	m, _ := newTestServer(t)
	call(t, m.handleCreateFile, map[string]any{"path": "dup", "content": "x"})

	tests := []struct {
		name    string
		handler ToolHandler
		args    map[string]any
	}{
		{name: "missing path", handler: m.handleMkdir, args: map[string]any{}},
		{name: "missing content", handler: m.handleCreateFile, args: map[string]any{"path": "f"}},
		{name: "duplicate", handler: m.handleCreateFile, args: map[string]any{"path": "dup", "content": "y"}},
		{name: "read missing", handler: m.handleReadFile, args: map[string]any{"path": "nope"}},
		{name: "cd into file", handler: m.handleCd, args: map[string]any{"path": "dup"}},
		{name: "stat missing", handler: m.handleStat, args: map[string]any{"path": "nope"}},
		{name: "delete missing", handler: m.handleDelete, args: map[string]any{"path": "nope"}},
		{name: "unknown encoding", handler: m.handleWriteFile, args: map[string]any{"path": "dup", "content": "y", "encoding": "rot13"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, tt.handler, tt.args)
			assert.True(t, res.IsError)
		})
	}
}

func TestTools_StatAndDf(t *testing.T) {
	m, _ := newTestServer(t)
	call(t, m.handleCreateFile, map[string]any{"path": "f", "content": "0123456789abcdefXYZ"})

	res := call(t, m.handleStat, map[string]any{"path": "f"})
	var meta ms.FileMetadata
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &meta))
	assert.Equal(t, int64(19), meta.Size)
	assert.Equal(t, []int{0, 1}, meta.Blocks)

	res = call(t, m.handleDf, nil)
	var st fs.FsStat
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &st))
	assert.Equal(t, 2, st.UsedBlocks)
	assert.Equal(t, 62, st.FreeBlocks)
	assert.Equal(t, 1, st.Files)

	res = call(t, m.handleDelete, map[string]any{"path": "f"})
	require.False(t, res.IsError)
}

func TestTools_ConcurrentCallsAreSerialized(t *testing.T) {
	m, svc := newTestServer(t)
	create := m.locked("create_file", m.handleCreateFile)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var req mcp.CallToolRequest
			req.Params.Arguments = map[string]any{"path": fmt.Sprintf("f%02d", i), "content": "abc"}
			res, err := create(context.Background(), req)
			assert.NoError(t, err)
			assert.False(t, res.IsError)
		}(i)
	}
	wg.Wait()

	entries, err := svc.ListDirectory("/")
	require.NoError(t, err)
	assert.Len(t, entries, 16)
	assert.Equal(t, 16, svc.GetFsStat().UsedBlocks)
}
