package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

var (
	chatTenant  string
	chatMessage string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a tenant's assistant",
	Long: `Sends one message with --message, or starts an interactive session.
Interactive commands: /reset starts a new session, /stats prints counters,
/quit exits.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatTenant, "tenant", "t", "", "tenant ID (required)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "message to send (interactive mode if empty)")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session ID (random if empty)")
	chatCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.registry.Get(ctx, chatTenant); err != nil {
		return fmt.Errorf("load tenant %s: %w", chatTenant, err)
	}
	if chatSession == "" {
		chatSession = uuid.NewString()
	}

	if chatMessage != "" {
		return send(ctx, a, chatMessage)
	}

	info("Chatting with %s (LLM: %s). /quit to exit.", chatTenant, a.gateway.Provider())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptColor.Sprint("> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			a.chat.ResetSession(chatTenant, chatSession)
			chatSession = uuid.NewString()
			success("new session %s", chatSession)
			continue
		case "/stats":
			printStats(a)
			continue
		}
		if err := send(ctx, a, line); err != nil {
			failure("%v", err)
		}
	}
}

func send(ctx context.Context, a *assistant, msg string) error {
	resp, err := a.chat.Chat(ctx, model.ChatRequest{
		TenantID:  chatTenant,
		SessionID: chatSession,
		Message:   msg,
	})
	if err != nil {
		return err
	}
	fmt.Println(resp.Message)
	dimColor.Printf("  [%s %.2f via %s · %d products · %.0fms]\n",
		resp.Intent, resp.Confidence, methodOrDash(resp.Method), resp.ProductsFound, resp.ProcessingTime*1000)
	return nil
}

func methodOrDash(m model.Method) string {
	if m == "" {
		return "-"
	}
	return string(m)
}

func printStats(a *assistant) {
	st := a.chat.Stats(a.gateway.Provider())
	var rows []string
	for _, t := range st.Tenants {
		rows = append(rows, fmt.Sprintf("%s\t%d\t%d\t%.1f\t%.0f%%\t%d",
			t.TenantID, t.TotalRequests, t.SuccessfulRequests, t.AvgResponseTimeMs, t.Cache.HitRate*100, t.Products))
	}
	table("TENANT\tREQUESTS\tOK\tAVG MS\tCACHE HIT\tPRODUCTS", rows)
	info("intent layers: cache=%d rules=%d llm=%d heuristics=%d",
		st.Intent.CacheHits, st.Intent.Rules, st.Intent.LLM, st.Intent.Heuristics)
}
