package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIゲートウェイとして起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は招待クリーンアップのワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	// "migrate down" で直近の1件を巻き戻す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中プロセスの/healthを確認する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// MigrateDirection はmigrateサブコマンドの方向。
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}

// ParseMigrateDirection はmigrateサブコマンドの2番目の引数を解析する。
// "down"以外はすべてMigrateUpとして扱う。
func ParseMigrateDirection(args []string) MigrateDirection {
	if len(args) >= 2 && args[1] == string(MigrateDown) {
		return MigrateDown
	}
	return MigrateUp
}
