// cmd/build-readme/main.go
package main

import (
	"flag"

	"go.uber.org/zap"

	"relaybot/internal/docs"
	"relaybot/internal/httpsock"
	"relaybot/internal/plugin"
	"relaybot/internal/router"
	"relaybot/internal/web"
)

func main() {
	tmpl := flag.String("template", "COMMANDS.md.tmpl", "template file; a built-in one is used if missing")
	out := flag.String("out", "COMMANDS.md", "output file")
	responders := flag.String("plugins", "", "optional responders YAML to include")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	reg := plugin.NewRegistry()
	if *responders != "" {
		loaded, err := plugin.LoadFile(*responders)
		if err != nil {
			log.Fatal("load responders", zap.Error(err))
		}
		for _, r := range loaded {
			reg.Register(r.Scope, r)
		}
	}
	reg.Register(plugin.ScopeUser, web.Plugin(httpsock.NewClient(nil, nil)))
	router.New(reg)

	if err := docs.UpdateReadme(*tmpl, *out, reg.Commands()); err != nil {
		log.Fatal("update readme", zap.Error(err))
	}
	log.Info("commands page updated", zap.String("file", *out))
}
