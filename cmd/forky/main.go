// Command forky はgismos・callme・edlearnの3テナントを1プロセスで提供するAPIサーバー。
//
//	forky [serve]              APIサーバーを起動する
//	forky worker               決済照合と孤立動画の掃除を定期実行する
//	forky migrate              マイグレーションを適用する
//	forky healthcheck          /health を確認する（Dockerヘルスチェック用）
//	forky promote-admin EMAIL  edlearnのユーザーを管理者に昇格する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/forky/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
