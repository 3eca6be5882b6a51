// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-resty/resty/v2"
)

func main() {
	os.Exit(run(newClient(apiBaseURL()), os.Args[1:], os.Stdout, os.Stderr))
}

func run(c *resty.Client, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}
	cmd, args := args[0], args[1:]

	var (
		out map[string]interface{}
		err error
	)
	switch cmd {
	case "version":
		fmt.Fprintln(stdout, "worldsave-cli 0.1.0")
		return 0
	case "status":
		out, err = getStatus(c)
	case "save":
		out, err = save(c)
	case "load":
		out, err = load(c)
	case "level":
		if len(args) < 1 {
			return usageError(stderr, "level save|load")
		}
		switch args[0] {
		case "save":
			out, err = saveLevel(c)
		case "load":
			out, err = loadLevel(c)
		default:
			return usageError(stderr, "level save|load")
		}
	case "transition":
		if len(args) < 1 {
			return usageError(stderr, "transition <scene>")
		}
		out, err = transition(c, args[0])
	case "clear":
		out, err = clearAll(c)
	case "slots":
		return runSlots(c, args, stdout, stderr)
	case "login":
		if len(args) < 1 {
			return usageError(stderr, "login <operator_token>")
		}
		token, err := login(c, args[0])
		if err != nil {
			fmt.Fprintf(stderr, "登录失败: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, token)
		return 0
	default:
		printUsage(stderr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s 失败: %v\n", cmd, err)
		return 1
	}
	fmt.Fprintln(stdout, prettyJSON(out))
	return 0
}

func runSlots(c *resty.Client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "list" {
		out, err := listSlots(c)
		if err != nil {
			fmt.Fprintf(stderr, "列出存档槽失败: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, prettyJSON(out))
		return 0
	}
	if len(args) < 2 {
		return usageError(stderr, "slots [list|save|load|delete] <name>")
	}
	sub, name := args[0], args[1]
	var (
		out map[string]interface{}
		err error
	)
	switch sub {
	case "save":
		overwrite := len(args) > 2 && args[2] == "--overwrite"
		out, err = saveSlot(c, name, overwrite)
	case "load":
		out, err = loadSlot(c, name)
	case "delete":
		if err = deleteSlot(c, name); err == nil {
			fmt.Fprintf(stdout, "已删除存档槽 %s\n", name)
			return 0
		}
	default:
		return usageError(stderr, "slots [list|save|load|delete] <name>")
	}
	if err != nil {
		fmt.Fprintf(stderr, "slots %s 失败: %v\n", sub, err)
		return 1
	}
	fmt.Fprintln(stdout, prettyJSON(out))
	return 0
}

func usageError(w io.Writer, usage string) int {
	fmt.Fprintf(w, "Usage: worldsave-cli %s\n", usage)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: worldsave-cli <command> [args]")
	fmt.Fprintln(w, "  version                      - 显示版本")
	fmt.Fprintln(w, "  status                       - 控制器状态与最近一次报告")
	fmt.Fprintln(w, "  save                         - 完整存档当前场景")
	fmt.Fprintln(w, "  load                         - 重载当前场景并读档")
	fmt.Fprintln(w, "  level save|load              - 关卡持久化保存/恢复")
	fmt.Fprintln(w, "  transition <scene>           - 保存关卡持久化并切换到目标场景")
	fmt.Fprintln(w, "  clear                        - 清除所有场景的关卡持久化")
	fmt.Fprintln(w, "  slots [list]                 - 列出存档槽")
	fmt.Fprintln(w, "  slots save <name> [--overwrite]")
	fmt.Fprintln(w, "  slots load|delete <name>")
	fmt.Fprintln(w, "  login <operator_token>       - 换取 JWT，结果可设置到 WORLDSAVE_TOKEN")
	fmt.Fprintln(w, "环境变量: WORLDSAVE_API_URL（默认 http://localhost:8080）, WORLDSAVE_TOKEN")
}
