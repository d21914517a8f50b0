package main

import (
	"io"
	"os"
)

var configTemplate = `; vaultmerge settings. Every key is optional, the values below are the defaults.
; Environment variables (PUID, PGID, CRYPT_PASSWORD, CRYPT_PASSWORD2,
; ACCOUNTS_FILE, MOUNT_POINT, MAX_CONCURRENCY, RCLONE_CONFIG, ...) override them.

[vaultmerge]
accounts_file = /config/accounts.json
work_dir = /data
log_dir = /data/logs
rclone_config = /config/rclone/rclone.conf
mount_point = /mnt/vault

base_port = 8080
max_concurrency = 100
ready_checks = 10
ready_interval = 1s
login_settle = 2s
folder_prefix = vault

union_remote = union
crypt_remote = crypt
; crypt_password =
; crypt_password2 =
require_secrets = false

login_cmd = mega-login
mkdir_cmd = mega-mkdir
serve_cmd = mega-webdav
rclone_cmd = rclone
fusermount_cmd = fusermount
umount_cmd = umount

puid = -1
pgid = -1
run_as_user = vault
run_as_group = vault
fuse_group = fuse

; http_addr = 127.0.0.1:9090
stop_signals = INT TERM

[folders]
; account = /remote/folder
mega1 = /vault_primary
mega2 = /vault_secondary
`

// InitTemplateCommand implements flags.Commander interface
type InitTemplateCommand struct {
	OutFile string `short:"o" long:"output" description:"the output file name" required:"true"`
}

var initTemplateCommand InitTemplateCommand

// Execute execute the init command
func (x *InitTemplateCommand) Execute(args []string) error {
	f, err := os.Create(x.OutFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return GenTemplate(f)
}

// GenTemplate generate the template
func GenTemplate(writer io.Writer) error {
	_, err := writer.Write([]byte(configTemplate))
	return err
}

func init() {
	parser.AddCommand("init",
		"initialize a settings template",
		"The init subcommand writes the supported settings with their defaults to specified file",
		&initTemplateCommand)
}
