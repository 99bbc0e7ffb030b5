// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package zurich uploads files to the MetaSUB SFTP server in Zurich.
package zurich

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server defaults.
const (
	DefaultPort       = 22
	DefaultAssemblies = "assemblies"
)

// client is the subset of an SFTP client used by Knex.
type client interface {
	MkdirAll(dir string) error
	Create(path string) (io.WriteCloser, error)
	Symlink(oldname, newname string) error
	Close() error
}

type sftpClient struct {
	*sftp.Client
	conn *ssh.Client
}

func (c sftpClient) Create(path string) (io.WriteCloser, error) {
	return c.Client.Create(path)
}

func (c sftpClient) Close() error {
	err := c.Client.Close()
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Options configures a connection to the server.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the time taken to establish the connection.
	Timeout time.Duration
	// Dryrun makes every operation print its plan without connecting
	// to the server.
	Dryrun bool
}

// Knex is a connection to the server. Each operation prints a line
// "[SFTP Knex] <OP> <args>" to Out before it is performed.
type Knex struct {
	// Out receives one line per operation.
	Out    io.Writer
	dryrun bool
	client client
}

// Dial connects to the server with password authentication. Host keys
// are not verified. With opts.Dryrun, no connection is made.
func Dial(opts Options) (*Knex, error) {
	k := &Knex{Out: os.Stdout, dryrun: opts.Dryrun}
	if opts.Dryrun {
		return k, nil
	}
	if opts.Host == "" {
		return nil, errors.E(errors.Invalid, "zurich: no host given")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(opts.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // nolint: gosec
		Timeout:         opts.Timeout,
	})
	if err != nil {
		return nil, errors.E(errors.Net, "zurich: dial", addr, err)
	}
	c, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close() // nolint: errcheck
		return nil, errors.E(errors.Remote, "zurich: start sftp session", addr, err)
	}
	log.Debug.Printf("zurich: connected to %s as %s", addr, opts.Username)
	k.client = sftpClient{Client: c, conn: conn}
	return k, nil
}

func (k *Knex) printf(format string, args ...interface{}) {
	fmt.Fprintf(k.Out, "[SFTP Knex] "+format+"\n", args...)
}

// UploadFile copies a local file to remote.
func (k *Knex) UploadFile(local, remote string) (err error) {
	k.printf("UPLOAD %s %s", local, remote)
	if k.dryrun {
		return nil
	}
	in, err := os.Open(local)
	if err != nil {
		return errors.E("zurich: open", local, err)
	}
	defer in.Close() // nolint: errcheck
	out, err := k.client.Create(remote)
	if err != nil {
		return errors.E("zurich: create", remote, err)
	}
	defer errors.CleanUp(out.Close, &err)
	if _, err = io.Copy(out, in); err != nil {
		return errors.E("zurich: upload", local, remote, err)
	}
	return nil
}

// Symlink creates a symbolic link at target pointing to source.
func (k *Knex) Symlink(source, target string) error {
	k.printf("SYMLINK %s %s", source, target)
	if k.dryrun {
		return nil
	}
	if err := k.client.Symlink(source, target); err != nil {
		return errors.E("zurich: symlink", source, target, err)
	}
	return nil
}

// MakeDirs creates a remote directory along with any missing parents.
func (k *Knex) MakeDirs(dir string) error {
	k.printf("MAKEDIRS %s", dir)
	if k.dryrun {
		return nil
	}
	if err := k.client.MkdirAll(dir); err != nil {
		return errors.E("zurich: makedirs", dir, err)
	}
	return nil
}

// Close closes the connection.
func (k *Knex) Close() error {
	if k.client == nil {
		return nil
	}
	return k.client.Close()
}
