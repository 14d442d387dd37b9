package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"taskverse/internal/config"
	"taskverse/pkg/task"
	"taskverse/pkg/taskclient"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fatal("config: %v", err)
	}
	client := taskclient.New(cfg.APIURL)
	ctx := context.Background()

	args := os.Args[2:]
	switch os.Args[1] {
	case "list":
		handleList(ctx, client, args)
	case "get":
		if len(args) < 1 {
			fatal("Usage: taskctl get <id>")
		}
		t, err := client.GetTask(ctx, args[0])
		if err != nil {
			fatal("get task: %v", err)
		}
		printJSON(t)
	case "create":
		in, err := createFromFlags(parseFlags(args))
		if err != nil {
			fatal("%v", err)
		}
		t, err := client.CreateTask(ctx, in)
		if err != nil {
			fatal("create task: %v", err)
		}
		printJSON(t)
	case "update":
		if len(args) < 1 {
			fatal("Usage: taskctl update <id> [--title=...] [--description=...] [--due=...] [--status=...]")
		}
		patch, err := patchFromFlags(parseFlags(args[1:]))
		if err != nil {
			fatal("%v", err)
		}
		t, err := client.UpdateTask(ctx, args[0], patch)
		if err != nil {
			fatal("update task: %v", err)
		}
		printJSON(t)
	case "delete":
		if len(args) < 1 {
			fatal("Usage: taskctl delete <id>")
		}
		if err := client.DeleteTask(ctx, args[0]); err != nil {
			fatal("delete task: %v", err)
		}
		fmt.Printf(`{"status":"ok","deleted":%q}`+"\n", args[0])
	case "statuses":
		printJSON(task.Statuses())
	default:
		usage()
		os.Exit(1)
	}
}

func handleList(ctx context.Context, client *taskclient.Client, args []string) {
	flags := parseFlags(args)
	tasks, err := client.GetTasks(ctx, task.Status(flags["status"]))
	if err != nil {
		fatal("list tasks: %v", err)
	}
	tasks = task.Search(tasks, flags["search"])
	if flags["format"] == "short" {
		printShortTasks(tasks)
	} else {
		printJSON(tasks)
	}
}

func createFromFlags(flags map[string]string) (task.CreateTask, error) {
	in := task.CreateTask{
		Title:       flags["title"],
		Description: flags["description"],
		Status:      task.Status(flags["status"]),
	}
	if in.Title == "" {
		return in, fmt.Errorf("--title is required")
	}
	due := flags["due"]
	if due == "" {
		return in, fmt.Errorf("--due is required")
	}
	d, err := task.ParseTime(due)
	if err != nil {
		return in, fmt.Errorf("--due: %w", err)
	}
	in.DueDate = d
	return in, nil
}

// patchFromFlags sets only the fields named on the command line, so
// --description= clears the description.
func patchFromFlags(flags map[string]string) (task.UpdateTask, error) {
	var patch task.UpdateTask
	if v, ok := flags["title"]; ok {
		patch.Title = &v
	}
	if v, ok := flags["description"]; ok {
		patch.Description = &v
	}
	if v, ok := flags["due"]; ok {
		d, err := task.ParseTime(v)
		if err != nil {
			return patch, fmt.Errorf("--due: %w", err)
		}
		patch.DueDate = &d
	}
	if v, ok := flags["status"]; ok {
		s := task.Status(v)
		patch.Status = &s
	}
	if patch.IsEmpty() {
		return patch, fmt.Errorf("no updates specified")
	}
	return patch, nil
}

// parseFlags parses --key=value and --flag style args into a map.
func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if idx := strings.Index(arg, "="); idx >= 0 {
			flags[arg[:idx]] = arg[idx+1:]
		} else {
			flags[arg] = ""
		}
	}
	return flags
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode JSON: %v", err)
	}
}

func truncStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func printShortTasks(tasks []task.Task) {
	for _, t := range tasks {
		fmt.Printf("%-8s  %-11s  %-10s  %s\n",
			truncStr(t.ID, 8), t.Status, t.DueDate.Format("2006-01-02"), truncStr(t.Title, 60))
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "taskctl: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: taskctl <command>

Commands:
  list      List tasks [--status=...] [--search=...] [--format=short]
  get       Show one task: get <id>
  create    Create a task: create --title=... --due=YYYY-MM-DD [--description=...] [--status=...]
  update    Patch a task: update <id> [--title=...] [--description=...] [--due=...] [--status=...]
  delete    Delete a task: delete <id>
  statuses  List the allowed status labels

Environment:
  TASKVERSE_API_URL  API base URL (default http://localhost:3001)`)
}
