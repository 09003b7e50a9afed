package devices

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mobile-next/edgenav/utils"
)

const (
	// DefaultLauncherPackage is assumed when the HOME intent cannot be resolved.
	DefaultLauncherPackage = "com.android.launcher3"
	systemUIPackage        = "com.android.systemui"

	// only this many recent tasks are scanned for a switch target
	maxRecentTasks = 5
)

// matches both "Task{a1b2 #42 type=standard A=10123:com.foo U=0"
// and the older "TaskRecord{a1b2 #42 A=com.foo U=0"
var recentTaskRe = regexp.MustCompile(`Recent #(\d+): Task(?:Record)?\{[0-9a-f]+ #(\d+) (?:type=\S+ )?[AI]=(?:\d+:)?([A-Za-z0-9_.]+)`)

// homePackages caches the resolved launcher package per device serial.
var homePackages, _ = lru.New[string, string](32)

// RecentTask is one entry of the recent tasks list, most recent first.
type RecentTask struct {
	Index       int    `json:"index"`
	TaskID      int    `json:"taskId"`
	PackageName string `json:"packageName"`
}

func parseRecentTasks(output string) []RecentTask {
	var tasks []RecentTask
	for _, m := range recentTaskRe.FindAllStringSubmatch(output, -1) {
		index, _ := strconv.Atoi(m[1])
		taskID, _ := strconv.Atoi(m[2])
		tasks = append(tasks, RecentTask{Index: index, TaskID: taskID, PackageName: m[3]})
	}
	return tasks
}

// pickLastApp skips the foreground task, the launcher and system UI.
func pickLastApp(tasks []RecentTask, homePackage string) (RecentTask, bool) {
	for i := 1; i < len(tasks) && i < maxRecentTasks; i++ {
		pkg := tasks[i].PackageName
		if pkg != homePackage && pkg != systemUIPackage {
			return tasks[i], true
		}
	}
	return RecentTask{}, false
}

// parseResolvedActivity extracts the package from
// "cmd package resolve-activity --brief" output.
func parseResolvedActivity(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if idx := strings.Index(line, "/"); idx > 0 && !strings.Contains(line, " ") {
			return line[:idx]
		}
	}
	return ""
}

// RecentTasks lists the recent tasks, most recent first.
func (d *AndroidDevice) RecentTasks(ctx context.Context) ([]RecentTask, error) {
	output, err := d.shell(ctx, "dumpsys", "activity", "recents")
	if err != nil {
		return nil, err
	}
	return parseRecentTasks(output), nil
}

// HomePackage resolves the current launcher, falling back to
// DefaultLauncherPackage when the resolver picks the chooser.
func (d *AndroidDevice) HomePackage(ctx context.Context) string {
	if pkg, ok := homePackages.Get(d.id); ok {
		return pkg
	}

	output, err := d.shell(ctx, "cmd", "package", "resolve-activity", "--brief",
		"-a", "android.intent.action.MAIN", "-c", "android.intent.category.HOME")
	pkg := parseResolvedActivity(output)
	if err != nil || pkg == "" || pkg == "android" {
		utils.Verbose("could not resolve home package on %s, using %s", d.id, DefaultLauncherPackage)
		return DefaultLauncherPackage
	}

	homePackages.Add(d.id, pkg)
	return pkg
}

// SwitchToLastApp brings the previously used app back to the front.
func (d *AndroidDevice) SwitchToLastApp(ctx context.Context) error {
	tasks, err := d.RecentTasks(ctx)
	if err != nil {
		return err
	}

	target, ok := pickLastApp(tasks, d.HomePackage(ctx))
	if !ok {
		return fmt.Errorf("no previous app to switch to")
	}

	utils.Verbose("switching %s to task #%d (%s)", d.id, target.TaskID, target.PackageName)
	return d.LaunchApp(ctx, target.PackageName)
}

// InputMethodShown reports whether the soft keyboard is visible.
func (d *AndroidDevice) InputMethodShown(ctx context.Context) (bool, error) {
	output, err := d.shell(ctx, "dumpsys", "input_method")
	if err != nil {
		return false, err
	}
	return strings.Contains(output, "mInputShown=true"), nil
}
