// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zurich

import (
	"time"

	"github.com/metasub/utils/config"
)

// Server describes the Zurich server as configured by the profile.
type Server struct {
	Options
	// Assemblies is the remote directory holding assemblies.
	Assemblies string
}

// Dial connects to the server.
func (s *Server) Dial(dryrun bool) (*Knex, error) {
	opts := s.Options
	opts.Dryrun = dryrun
	return Dial(opts)
}

func init() {
	config.Register("zurich", func(constr *config.Constructor) {
		var s Server
		constr.StringVar(&s.Host, "host", "", "the SFTP server host")
		constr.IntVar(&s.Port, "port", DefaultPort, "the SFTP server port")
		constr.StringVar(&s.Username, "username", "", "the SFTP user name")
		constr.StringVar(&s.Password, "password", "", "the SFTP password")
		constr.DurationVar(&s.Timeout, "timeout", time.Minute, "the connection timeout")
		constr.StringVar(&s.Assemblies, "assemblies", DefaultAssemblies, "the remote assemblies directory")
		constr.Doc = "the Zurich SFTP server"
		constr.New = func() (interface{}, error) {
			return &s, nil
		}
	})
}
