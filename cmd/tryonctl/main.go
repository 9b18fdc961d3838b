// tryonctl is a command line client for a running tryon server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-tryon/internal/config"
	"github.com/teslashibe/go-tryon/internal/httpc"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/recorder"
	"github.com/teslashibe/go-tryon/pkg/tracking"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const usage = `usage: tryonctl [-server URL] <command> [args]

commands:
  status               show tracker state
  catalog              list products
  select <product-id>  switch the active accessory
  reset                clear smoothing
  start | stop         start or stop the tracking loop
  sessions             list recorded sessions
  plot <session-id> [dir]
                       plot raw vs smoothed placements of a session
  tail [placements|status]
                       stream websocket messages until interrupted
`

func main() {
	server := flag.String("server", "", "Server URL (overrides TRYON_SERVER_URL)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	base := config.Load().ServerURL
	if *server != "" {
		base = *server
	}
	base = strings.TrimRight(base, "/")

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(base, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tryonctl:", err)
		os.Exit(1)
	}
}

func run(base, cmd string, args []string) error {
	switch cmd {
	case "status":
		var st tracking.State
		if err := httpc.GetJSON(base+"/api/status", &st); err != nil {
			return err
		}
		printState(st)
		return nil

	case "catalog":
		var products []accessory.Product
		if err := httpc.GetJSON(base+"/api/catalog", &products); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSCALE\tOFFSET Y\tOFFSET Z")
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\n",
				p.ID, p.Name, accessory.ParseCategory(string(p.Category)), p.ScaleFactor, p.OffsetY, p.OffsetZ)
		}
		return w.Flush()

	case "select":
		if len(args) != 1 {
			return fmt.Errorf("select takes one product id")
		}
		var resp map[string]interface{}
		req := map[string]string{"product_id": args[0]}
		if err := httpc.PostJSON(base+"/api/accessory", req, &resp); err != nil {
			return err
		}
		fmt.Printf("selected %s\n", args[0])
		return nil

	case "reset":
		return post(base + "/api/reset")

	case "start":
		return post(base + "/api/tracking/start")

	case "stop":
		return post(base + "/api/tracking/stop")

	case "sessions":
		var rows []recorder.SessionRow
		if err := httpc.GetJSON(base+"/api/sessions", &rows); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSTARTED\tPRODUCT\tMAPPING\tWINDOW\tFRAMES")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
				r.ID, r.Started.Format(time.RFC3339), r.ProductID, r.Mapping, r.Window, r.Frames)
		}
		return w.Flush()

	case "plot":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("plot takes a session id and an optional output directory")
		}
		dir := "."
		if len(args) == 2 {
			dir = args[1]
		}
		var frames []recorder.FrameRow
		if err := httpc.GetJSON(base+"/api/sessions/"+url.PathEscape(args[0])+"/frames", &frames); err != nil {
			return err
		}
		paths, err := recorder.PlotSession(args[0], frames, dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil

	case "tail":
		stream := "placements"
		if len(args) > 0 {
			stream = args[0]
		}
		if stream != "placements" && stream != "status" {
			return fmt.Errorf("unknown stream %q", stream)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return tail(ctx, base, stream)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func post(u string) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := httpc.PostJSON(u, struct{}{}, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Status)
	return nil
}

func printState(st tracking.State) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "session\t%s\n", st.SessionID)
	fmt.Fprintf(w, "running\t%v\n", st.Running)
	fmt.Fprintf(w, "face\t%v\n", st.FaceVisible)
	fmt.Fprintf(w, "fps\t%.1f\n", st.FPS)
	fmt.Fprintf(w, "product\t%s (%s)\n", st.Selection.ProductID, st.Selection.Meta.Category)
	fmt.Fprintf(w, "mapping\t%s\n", st.Mapping)
	fmt.Fprintf(w, "window\t%d\n", st.Window)
	fmt.Fprintf(w, "frames\t%d\n", st.Frames)
	fmt.Fprintf(w, "placements\t%d\n", st.Placements)
	fmt.Fprintf(w, "errors\t%d\n", st.Errors)
	w.Flush()
}

// wsURL turns the server's http URL into the websocket URL for stream.
func wsURL(base, stream string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + stream
	return u.String(), nil
}

func tail(ctx context.Context, base, stream string) error {
	u, err := wsURL(base, stream)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var env struct {
			Type string              `json:"type"`
			Data jsoniter.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			fmt.Println(string(data))
			continue
		}
		fmt.Printf("%s %s\n", env.Type, env.Data)
	}
}
