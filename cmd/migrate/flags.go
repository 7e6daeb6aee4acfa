package migrate

import (
	"github.com/spf13/cobra"

	"github.com/tcgun/tavsiyece-sub000/cmd/util"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command, _ []string) {
	flags := command.Flags()

	util.MustBindPFlag(datastoreEngineConf, flags.Lookup(datastoreEngineFlag))
	util.MustBindPFlag(datastoreURIConf, flags.Lookup(datastoreURIFlag))
	util.MustBindPFlag(datastoreUsernameConf, flags.Lookup(datastoreUsernameFlag))
	util.MustBindPFlag(datastorePasswordConf, flags.Lookup(datastorePasswordFlag))
	util.MustBindPFlag(versionFlag, flags.Lookup(versionFlag))
	util.MustBindPFlag(timeoutFlag, flags.Lookup(timeoutFlag))
	util.MustBindPFlag(verboseMigrationFlag, flags.Lookup(verboseMigrationFlag))
	util.MustBindPFlag(logFormatConf, flags.Lookup(logFormatFlag))
	util.MustBindPFlag(logLevelConf, flags.Lookup(logLevelFlag))
}
