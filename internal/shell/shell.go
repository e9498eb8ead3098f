package shell

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	fs "github.com/AnishMulay/sandfs/internal/file_service"
	ms "github.com/AnishMulay/sandfs/internal/metadata_service"
)

var errUsage = errors.New("usage")

type command struct {
	usage   string
	summary string
	run     func(s *Shell, arg string) error
}

// commands is filled in init because help reads it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"mkdir":    {"mkdir <dirname>", "Create a new directory", (*Shell).mkdir},
		"cd":       {"cd <dirname>", "Change the current directory (absolute or relative)", (*Shell).cd},
		"ls":       {"ls [path]", "List the current or the given directory", (*Shell).list},
		"pwd":      {"pwd", "Print the current directory", (*Shell).pwd},
		"create":   {"create <filename>", "Create a file, prompting for its content", (*Shell).create},
		"write":    {"write <filename>", "Replace a file's content, prompting for it", (*Shell).write},
		"read":     {"read <filename>", "Print a file's content", (*Shell).read},
		"delete":   {"delete <name>", "Delete a file or an empty directory", (*Shell).remove},
		"rmdir":    {"rmdir <dirname>", "Delete an empty directory", (*Shell).rmdir},
		"truncate": {"truncate <filename> <size>", "Shrink or zero-extend a file", (*Shell).truncate},
		"stat":     {"stat <filename>", "Show a file's metadata", (*Shell).stat},
		"df":       {"df", "Show volume usage", (*Shell).df},
		"clear":    {"clear", "Clear the screen", (*Shell).clear},
		"help":     {"help", "Show this help message", (*Shell).help},
		"exit":     {"exit", "Exit the shell", nil},
	}
}

var helpOrder = []string{
	"mkdir", "cd", "ls", "pwd", "create", "write", "read", "delete",
	"rmdir", "truncate", "stat", "df", "clear", "help", "exit",
}

// Shell is a line-oriented front end over a FileService. Operation errors are
// printed and the loop carries on.
type Shell struct {
	fs  fs.FileService
	in  *bufio.Scanner
	out io.Writer
}

func NewShell(fsvc fs.FileService, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		fs:  fsvc,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Run reads commands until exit or end of input.
func (s *Shell) Run() error {
	s.println("Welcome to the sandfs shell!")
	s.println("Type 'help' for available commands")
	if err := s.fs.RecoveryError(); err != nil {
		s.printf("Warning: previous state could not be restored, starting empty: %v\n", err)
	}

	for {
		s.printf("%s> ", s.fs.CurrentPath())
		line, ok := s.readLine()
		if !ok {
			s.println()
			return s.in.Err()
		}

		name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		if name == "" {
			continue
		}
		if name == "exit" {
			return nil
		}

		cmd, found := commands[name]
		if !found {
			s.println("Unknown command. Type 'help' for available commands.")
			continue
		}

		if err := cmd.run(s, strings.TrimSpace(arg)); err != nil {
			if errors.Is(err, errUsage) {
				s.printf("Error: usage: %s\n", cmd.usage)
				continue
			}
			s.printf("Error: %v\n", err)
		}
	}
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimRight(s.in.Text(), "\r"), true
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}

func required(arg string) error {
	if arg == "" {
		return errUsage
	}
	return nil
}

// prompt asks for one line of file content.
func (s *Shell) prompt(name string) ([]byte, error) {
	s.printf("Enter data to write to %s: ", name)
	line, ok := s.readLine()
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return []byte(line), nil
}

// --- Commands ---

func (s *Shell) mkdir(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	if err := s.fs.CreateDirectory(arg); err != nil {
		return err
	}
	s.printf("Directory '%s' created successfully.\n", arg)
	return nil
}

func (s *Shell) cd(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	return s.fs.ChangeDirectory(arg)
}

func (s *Shell) list(arg string) error {
	if arg == "" {
		arg = "."
	}
	entries, err := s.fs.ListDirectory(arg)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.println("No files or directories found.")
		return nil
	}
	s.println("Files and directories:")
	for _, e := range entries {
		if e.Type == ms.TypeDirectory {
			s.println(e.Name + "/")
			continue
		}
		s.println(e.Name)
	}
	return nil
}

func (s *Shell) pwd(string) error {
	s.printf("Current directory: %s\n", s.fs.CurrentPath())
	return nil
}

func (s *Shell) create(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	data, err := s.prompt(arg)
	if err != nil {
		return err
	}
	if err := s.fs.CreateFile(arg, data); err != nil {
		return err
	}
	s.printf("File '%s' created successfully.\n", arg)
	return nil
}

func (s *Shell) write(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	data, err := s.prompt(arg)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(arg, data); err != nil {
		return err
	}
	s.printf("File '%s' written successfully.\n", arg)
	return nil
}

func (s *Shell) read(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	data, err := s.fs.ReadFile(arg)
	if err != nil {
		return err
	}
	s.printf("Contents of %s:\n", arg)
	if isText(data) {
		s.println(string(data))
		return nil
	}
	fmt.Fprint(s.out, hex.Dump(data))
	return nil
}

// isText reports whether data can be printed as-is.
func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if r == 0 || (r < 0x20 && r != '\n' && r != '\t' && r != '\r') {
			return false
		}
	}
	return true
}

func (s *Shell) remove(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	if err := s.fs.DeleteEntry(arg); err != nil {
		return err
	}
	s.printf("'%s' deleted successfully.\n", arg)
	return nil
}

func (s *Shell) rmdir(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	if err := s.fs.DeleteDirectory(arg); err != nil {
		return err
	}
	s.printf("Directory '%s' removed successfully.\n", arg)
	return nil
}

func (s *Shell) truncate(arg string) error {
	idx := strings.LastIndex(arg, " ")
	if idx < 0 {
		return errUsage
	}
	name := strings.TrimSpace(arg[:idx])
	size, err := strconv.ParseInt(arg[idx+1:], 10, 64)
	if err != nil || name == "" {
		return errUsage
	}
	if err := s.fs.Truncate(name, size); err != nil {
		return err
	}
	s.printf("File '%s' truncated to %d bytes.\n", name, size)
	return nil
}

func (s *Shell) stat(arg string) error {
	if err := required(arg); err != nil {
		return err
	}
	meta, err := s.fs.Stat(arg)
	if err != nil {
		return err
	}
	s.printf("File: %s\n", meta.Filename)
	s.printf("Size: %d bytes\n", meta.Size)
	s.printf("Blocks: %v\n", meta.Blocks)
	s.printf("Created: %s\n", meta.CreatedAt.Format(time.RFC3339))
	s.printf("Modified: %s\n", meta.ModifiedAt.Format(time.RFC3339))
	return nil
}

func (s *Shell) df(string) error {
	st := s.fs.GetFsStat()
	s.printf("Volume: %s\n", st.VolumeID)
	s.printf("Block size: %d bytes\n", st.BlockSize)
	s.printf("Blocks: %d total, %d used, %d free\n", st.TotalBlocks, st.UsedBlocks, st.FreeBlocks)
	s.printf("Entries: %d files, %d directories\n", st.Files, st.Directories)
	return nil
}

func (s *Shell) clear(string) error {
	fmt.Fprint(s.out, "\033[H\033[J")
	return nil
}

func (s *Shell) help(string) error {
	s.println("Available commands:")
	for _, name := range helpOrder {
		cmd := commands[name]
		s.printf("  %-28s %s\n", cmd.usage, cmd.summary)
	}
	return nil
}
