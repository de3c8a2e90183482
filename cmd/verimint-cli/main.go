// verimint-cli is a command-line client for interacting with a verimintd node.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/issuer"
	"github.com/Klingon-tech/verimint/internal/ledger"
	"github.com/Klingon-tech/verimint/internal/rpc"
	"github.com/Klingon-tech/verimint/internal/rpcclient"
	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/internal/wallet"
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
	"golang.org/x/term"
)

// keystoreDir returns the keystore path matching verimintd's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--testnet":
			network = "testnet"
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	if rpcURL == "" {
		d := config.Default(config.NetworkType(network))
		rpcURL = fmt.Sprintf("http://%s:%d", d.RPC.Addr, d.RPC.Port)
	}

	c := &cli{
		client: rpcclient.New(rpcURL),
		ksDir:  keystoreDir(dataDir, network),
	}
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "info":
		c.cmdInfo()
	case "receipt":
		c.cmdReceipt(cmdArgs)
	case "wallet":
		c.cmdWallet(cmdArgs)
	case "init-issuer":
		c.cmdInitIssuer(cmdArgs)
	case "init-verifier":
		c.cmdInitVerifier(cmdArgs)
	case "create-account":
		c.cmdCreateAccount(cmdArgs)
	case "create-node-license":
		c.cmdCreateNodeLicense(cmdArgs)
	case "verify-and-mint":
		c.cmdVerifyAndMint(cmdArgs)
	case "mint":
		c.cmdMint(cmdArgs)
	case "balance":
		c.cmdBalance(cmdArgs)
	case "mint-info":
		c.cmdMintInfo(cmdArgs)
	case "verifier-config":
		c.cmdVerifierConfig()
	case "node-info":
		c.cmdNodeRecord(cmdArgs)
	case "derive":
		c.cmdDerive(cmdArgs)
	case "attest":
		c.cmdAttest(cmdArgs)
	case "engagement":
		cmdEngagement(cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: verimint-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8899, testnet :8999)
  --datadir <path>    Data directory (default: ~/.verimint)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Commands:
  info                            Show node, program and PDA addresses
  receipt <tx_hash>               Show a transaction receipt

  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import wallet from mnemonic
  wallet list                     List wallets
  wallet address --wallet <w>     List wallet addresses
  wallet new-address --wallet <w> [--label <l>]
                                  Derive the next address

  init-issuer --wallet <w>        Create the token and license mints under the
                                  verifier's authority
  init-verifier --wallet <w> [--authority <addr>] [--require-license]
                                  Bind the verifier to the mint
  create-account --wallet <w> [--owner <addr>]
                                  Create a token account
  create-node-license --wallet <w> --owner <addr> --node-id <id>
                                  Issue a node license (verifier authority only)
  verify-and-mint --wallet <w> --amount <amt> (--data <s>|--data-hex <h>|--data-file <f>) [--to <owner>] [--license]
                                  Verify a payload and mint to the owner's account
  mint --wallet <w> --amount <amt> [--to <owner>]
                                  Attempt a direct ledger mint (rejected unless the
                                  wallet holds the mint authority)

  balance <owner|account> [--mint <addr>]
                                  Show a token balance
  mint-info [mint]                Show mint supply and authority
  verifier-config                 Show the verifier configuration
  node-info <owner>               Show a licensed node's record
  derive --program <name|addr> [seed...] [--hex <seed>...]
                                  Derive a program address

  attest --wallet <w> --amount <amt> [--to <owner>] (--data <s>|--data-file <f>)
                                  Sign a mint approval as an attester (prints payload)
  engagement --type <T> --confidence <f> --duration <f> --intensity <f> [--timestamp <unix>]
                                  Build an engagement record with its proof
`)
}

type cli struct {
	client *rpcclient.Client
	ksDir  string
}

// ── info / receipt ──────────────────────────────────────────────────────

func (c *cli) cmdInfo() {
	info, err := c.client.NodeInfo()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Network:         %s\n", info.Network)
	fmt.Printf("Version:         %s\n", info.Version)
	fmt.Printf("PDA scheme:      %s\n", info.PDAScheme)
	if info.Predicate != "" {
		fmt.Printf("Predicate:       %s\n", info.Predicate)
	}
	fmt.Printf("Mint:            %s\n", info.Mint)
	fmt.Printf("License mint:    %s\n", info.LicenseMint)
	fmt.Printf("Verifier config: %s\n", info.VerifierConfig)
	fmt.Println("Programs:")
	for _, name := range []string{ledger.Name, issuer.Name, verifier.Name} {
		if id, ok := info.Programs[name]; ok {
			fmt.Printf("  %-9s %s\n", name, id)
		}
	}
}

func (c *cli) cmdReceipt(args []string) {
	if len(args) < 1 {
		fatal("Usage: verimint-cli receipt <tx_hash>")
	}
	var result json.RawMessage
	if err := c.client.Call("tx_getReceipt", rpc.HashParam{Hash: args[0]}, &result); err != nil {
		fatal("%v", err)
	}
	printJSON(result)
}

// ── wallet ──────────────────────────────────────────────────────────────

func (c *cli) cmdWallet(args []string) {
	if len(args) < 1 {
		fatal("Usage: verimint-cli wallet <create|import|list|address|new-address> [flags]")
	}

	switch args[0] {
	case "create":
		c.cmdWalletCreate(args[1:])
	case "import":
		c.cmdWalletImport(args[1:])
	case "list":
		c.cmdWalletList()
	case "address":
		c.cmdWalletAddress(args[1:])
	case "new-address":
		c.cmdWalletNewAddress(args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: verimint-cli wallet <create|import|list|address|new-address> [flags]", args[0])
	}
}

func (c *cli) cmdWalletCreate(args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: verimint-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	c.storeWallet(*name, mnemonic)
}

func (c *cli) cmdWalletImport(args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: verimint-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	c.storeWallet(*name, *mnemonic)
}

func (c *cli) storeWallet(name, mnemonic string) {
	password := newPassword()

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	ks, err := wallet.NewKeystore(c.ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	acct, err := ks.Create(name, seed, password, wallet.DefaultParams())
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("\nWallet saved: %s\n", name)
	fmt.Printf("Address: %s\n", acct.Address)
}

func (c *cli) cmdWalletList() {
	ks := c.keystore()
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func (c *cli) cmdWalletAddress(args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: verimint-cli wallet address --wallet <name>")
	}

	accounts, err := c.keystore().ListAccounts(*walletName)
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if len(accounts) == 0 {
		fmt.Println("No addresses found.")
		return
	}
	for _, acct := range accounts {
		fmt.Printf("  [%d] %s  %s\n", acct.Index, acct.Address, acct.Name)
	}
}

func (c *cli) cmdWalletNewAddress(args []string) {
	fs := flag.NewFlagSet("wallet new-address", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	label := fs.String("label", "", "Address label")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: verimint-cli wallet new-address --wallet <name> [--label <label>]")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	acct, err := c.keystore().NewAccount(*walletName, password, *label)
	if err != nil {
		fatal("new address: %v", err)
	}
	fmt.Printf("  [%d] %s\n", acct.Index, acct.Address)
}

// ── program instructions ────────────────────────────────────────────────

func (c *cli) cmdInitIssuer(args []string) {
	fs := flag.NewFlagSet("init-issuer", flag.ExitOnError)
	sf := signerFlags(fs)
	fs.Parse(args)

	info := c.nodeInfo()
	controller := mustAddress(info.VerifierConfig, "verifier config")
	ix, err := issuer.InitializeInstruction(verifier.ID, controller)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	c.submit(ix, sf)
	fmt.Printf("Mint:             %s\n", info.Mint)
	fmt.Printf("Mint authority:   %s\n", info.VerifierConfig)
}

func (c *cli) cmdInitVerifier(args []string) {
	fs := flag.NewFlagSet("init-verifier", flag.ExitOnError)
	sf := signerFlags(fs)
	authority := fs.String("authority", "", "Verifier authority (default: wallet address, must sign)")
	requireLicense := fs.Bool("require-license", false, "Require a node license on every verify-and-mint")
	fs.Parse(args)

	info := c.nodeInfo()
	key := c.signer(sf)
	auth := key.Address()
	if *authority != "" {
		auth = mustAddress(*authority, "authority")
	}
	build := verifier.InitializeInstruction
	if *requireLicense {
		build = verifier.InitializeLicensedInstruction
	}
	ix, err := build(
		mustAddress(info.VerifierConfig, "verifier config"),
		mustAddress(info.Mint, "mint"),
		auth)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	c.submitWith(ix, key)
	fmt.Printf("Verifier config:  %s\n", info.VerifierConfig)
	fmt.Printf("Authority:        %s\n", auth)
	fmt.Printf("License required: %v\n", *requireLicense)
}

func (c *cli) cmdCreateNodeLicense(args []string) {
	fs := flag.NewFlagSet("create-node-license", flag.ExitOnError)
	sf := signerFlags(fs)
	owner := fs.String("owner", "", "Node owner")
	nodeID := fs.String("node-id", "", "Node identifier")
	fs.Parse(args)

	if *owner == "" || *nodeID == "" {
		fatal("Usage: verimint-cli create-node-license --wallet <w> --owner <addr> --node-id <id>")
	}
	ix, err := verifier.CreateNodeLicenseInstruction(mustAddress(*owner, "owner"), *nodeID)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	res := c.submitWith(ix, c.signer(sf))

	var node verifier.NodeRecord
	if len(res.Results) > 0 && json.Unmarshal(res.Results[0], &node) == nil {
		fmt.Printf("Node:             %s\n", node.NodeID)
		fmt.Printf("License account:  %s\n", node.LicenseAccount)
	}
}

func (c *cli) cmdNodeRecord(args []string) {
	if len(args) != 1 {
		fatal("Usage: verimint-cli node-info <owner>")
	}
	var node verifier.NodeRecord
	if err := c.client.Call("verifier_getNode", rpc.AddressParam{Address: args[0]}, &node); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Owner:            %s\n", node.Owner)
	fmt.Printf("Node:             %s\n", node.NodeID)
	fmt.Printf("License account:  %s\n", node.LicenseAccount)
	fmt.Printf("Verifications:    %d\n", node.VerificationCount)
	fmt.Printf("Rewards earned:   %s\n", c.formatUnits(node.RewardsEarned))
}

func (c *cli) cmdCreateAccount(args []string) {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	sf := signerFlags(fs)
	owner := fs.String("owner", "", "Account owner (default: wallet address)")
	fs.Parse(args)

	info := c.nodeInfo()
	key := c.signer(sf)
	own := key.Address()
	if *owner != "" {
		own = mustAddress(*owner, "owner")
	}
	ix, err := ledger.CreateAccountInstruction(mustAddress(info.Mint, "mint"), own)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	c.submitWith(ix, key)
	fmt.Printf("Token account:    %s\n", c.accountAddress(own.String()))
}

func (c *cli) cmdVerifyAndMint(args []string) {
	fs := flag.NewFlagSet("verify-and-mint", flag.ExitOnError)
	sf := signerFlags(fs)
	amount := fs.String("amount", "", "Amount in whole tokens (e.g. 1.5) or base units with --raw")
	raw := fs.Bool("raw", false, "Interpret --amount as base units")
	to := fs.String("to", "", "Recipient owner (default: wallet address)")
	licensed := fs.Bool("license", false, "Present the wallet's node license")
	pf := payloadFlags(fs)
	fs.Parse(args)

	if *amount == "" {
		fatal("Usage: verimint-cli verify-and-mint --wallet <w> --amount <amt> --data <payload> [--to <owner>] [--license]")
	}
	payload := pf.read()

	key := c.signer(sf)
	owner := key.Address().String()
	if *to != "" {
		owner = *to
	}
	units := c.parseUnits(*amount, *raw)
	recipient := mustAddress(c.accountAddress(owner), "recipient")

	var license types.Address
	if *licensed {
		license = mustAddress(c.licenseAccount(key.Address().String()), "license account")
	}
	ix, err := verifier.LicensedVerifyAndMintInstruction(payload, units, recipient, license)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	res := c.submitWith(ix, key)

	var minted verifier.MintResult
	if len(res.Results) > 0 && json.Unmarshal(res.Results[0], &minted) == nil {
		fmt.Printf("Minted:           %s\n", c.formatUnits(minted.Amount))
		fmt.Printf("Balance:          %s\n", c.formatUnits(minted.Balance))
	}
}

func (c *cli) cmdMint(args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	sf := signerFlags(fs)
	amount := fs.String("amount", "", "Amount in whole tokens")
	raw := fs.Bool("raw", false, "Interpret --amount as base units")
	to := fs.String("to", "", "Recipient owner (default: wallet address)")
	fs.Parse(args)

	if *amount == "" {
		fatal("Usage: verimint-cli mint --wallet <w> --amount <amt> [--to <owner>]")
	}
	info := c.nodeInfo()
	key := c.signer(sf)
	owner := key.Address().String()
	if *to != "" {
		owner = *to
	}
	units := c.parseUnits(*amount, *raw)
	ix, err := ledger.MintToInstruction(
		mustAddress(info.Mint, "mint"),
		mustAddress(c.accountAddress(owner), "recipient"),
		units)
	if err != nil {
		fatal("build instruction: %v", err)
	}
	c.submitWith(ix, key)
}

// ── queries ─────────────────────────────────────────────────────────────

func (c *cli) cmdBalance(args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (default: issuer mint)")
	if len(args) < 1 {
		fatal("Usage: verimint-cli balance <owner|account> [--mint <addr>]")
	}
	target := args[0]
	fs.Parse(args[1:])

	var res rpc.BalanceResult
	err := c.client.Call("ledger_getBalance", rpc.AddressParam{Address: target}, &res)
	if err != nil && rpcclient.KindOf(err) == "" {
		// Not a token account: treat target as an owner.
		var d rpc.DeriveResult
		if derr := c.client.Call("ledger_accountAddress",
			rpc.AccountAddressParam{Owner: target, Mint: *mint}, &d); derr != nil {
			fatal("%v", derr)
		}
		if err = c.client.Call("ledger_getBalance", rpc.AddressParam{Address: d.Address}, &res); err != nil {
			fatal("%v", err)
		}
	} else if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("Account:  %s\n", res.Address)
	fmt.Printf("Owner:    %s\n", res.Owner)
	fmt.Printf("Mint:     %s\n", res.Mint)
	fmt.Printf("Balance:  %s (%d base units)\n", c.formatUnits(res.Balance), res.Balance)
}

func (c *cli) cmdMintInfo(args []string) {
	var params interface{}
	if len(args) > 0 {
		params = rpc.AddressParam{Address: args[0]}
	}
	var m ledger.Mint
	if err := c.client.Call("ledger_getMint", params, &m); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Mint:            %s\n", m.Address)
	fmt.Printf("Decimals:        %d\n", m.Decimals)
	fmt.Printf("Supply:          %s\n", formatAmount(m.Supply, m.Decimals))
	fmt.Printf("Mint authority:  %s\n", m.MintAuthority)
}

func (c *cli) cmdVerifierConfig() {
	var vc rpc.VerifierConfigResult
	if err := c.client.Call("verifier_getConfig", nil, &vc); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Address:      %s\n", vc.Address)
	if vc.Config == nil {
		return
	}
	fmt.Printf("Bound mint:   %s\n", vc.BoundMint)
	fmt.Printf("License mint: %s\n", vc.LicenseMint)
	fmt.Printf("Licensed:     %v\n", vc.RequireLicense)
	fmt.Printf("Authority:    %s\n", vc.Authority)
	fmt.Printf("Bump:         %d\n", vc.Bump)
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func (c *cli) cmdDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	program := fs.String("program", "", "Program name or address")
	var hexSeeds stringList
	fs.Var(&hexSeeds, "hex", "Hex-encoded seed (repeatable)")
	fs.Parse(args)

	if *program == "" {
		fatal("Usage: verimint-cli derive --program <name|addr> [seed...] [--hex <seed>...]")
	}
	var d rpc.DeriveResult
	err := c.client.Call("pda_derive", rpc.DeriveParam{
		Program:  *program,
		Seeds:    fs.Args(),
		SeedsHex: hexSeeds,
	}, &d)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Address:  %s\n", d.Address)
	fmt.Printf("Bump:     %d\n", d.Bump)
	fmt.Printf("Program:  %s\n", d.Program)
}

// ── payload helpers ─────────────────────────────────────────────────────

func (c *cli) cmdAttest(args []string) {
	fs := flag.NewFlagSet("attest", flag.ExitOnError)
	sf := signerFlags(fs)
	amount := fs.String("amount", "", "Approved amount in whole tokens or base units with --raw")
	raw := fs.Bool("raw", false, "Interpret --amount as base units")
	to := fs.String("to", "", "Recipient owner (default: wallet address)")
	pf := payloadFlags(fs)
	fs.Parse(args)

	if *amount == "" {
		fatal("Usage: verimint-cli attest --wallet <w> --amount <amt> [--to <owner>] --data <payload>")
	}
	data := pf.read()
	key := c.signer(sf)
	defer key.Zero()
	owner := key.Address().String()
	if *to != "" {
		owner = *to
	}
	units := c.parseUnits(*amount, *raw)
	recipient := mustAddress(c.accountAddress(owner), "recipient")
	payload, err := verifier.Attest(key, data, units, recipient)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(string(payload))
	fmt.Fprintf(os.Stderr, "Attester key: %s\n", hex.EncodeToString(key.PublicKey()))
}

func cmdEngagement(args []string) {
	fs := flag.NewFlagSet("engagement", flag.ExitOnError)
	typ := fs.String("type", "", "Engagement type ("+strings.Join(verifier.EngagementTypes, ", ")+")")
	confidence := fs.Float64("confidence", 0, "Confidence in [0,1]")
	duration := fs.Float64("duration", 0, "Duration in seconds")
	intensity := fs.Float64("intensity", 0, "Intensity in [0,1]")
	ts := fs.Int64("timestamp", 0, "Unix timestamp (default: now)")
	fs.Parse(args)

	if *typ == "" {
		fatal("Usage: verimint-cli engagement --type <T> --confidence <f> --duration <f> --intensity <f>")
	}
	e := verifier.Engagement{
		EngagementType: strings.ToUpper(*typ),
		Metrics: verifier.EngagementMetrics{
			Confidence: *confidence,
			Duration:   *duration,
			Intensity:  *intensity,
		},
		Timestamp: *ts,
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	e.Proof = e.ProofDigest()
	if !verifier.NewEngagementPredicate().Verify(mustJSON(e)) {
		fmt.Fprintln(os.Stderr, "Warning: record would be rejected by the engagement predicate")
	}
	fmt.Println(string(mustJSON(e)))
}

type payload struct {
	data, hexData, file *string
}

func payloadFlags(fs *flag.FlagSet) *payload {
	return &payload{
		data:    fs.String("data", "", "Payload as a UTF-8 string"),
		hexData: fs.String("data-hex", "", "Payload as hex"),
		file:    fs.String("data-file", "", "Read payload from file"),
	}
}

func (p *payload) read() []byte {
	switch {
	case *p.file != "":
		b, err := os.ReadFile(*p.file)
		if err != nil {
			fatal("read payload: %v", err)
		}
		return b
	case *p.hexData != "":
		b, err := hex.DecodeString(*p.hexData)
		if err != nil {
			fatal("decode --data-hex: %v", err)
		}
		return b
	default:
		return []byte(*p.data)
	}
}

// ── signing ─────────────────────────────────────────────────────────────

type signerOpts struct {
	wallet *string
	index  *uint
}

func signerFlags(fs *flag.FlagSet) *signerOpts {
	return &signerOpts{
		wallet: fs.String("wallet", "", "Wallet name"),
		index:  fs.Uint("index", 0, "Wallet address index"),
	}
}

func (c *cli) keystore() *wallet.Keystore {
	ks, err := wallet.NewKeystore(c.ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

func (c *cli) signer(o *signerOpts) *crypto.PrivateKey {
	if *o.wallet == "" {
		fatal("--wallet is required")
	}
	if *o.index > math.MaxUint32 {
		fatal("--index out of range")
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	key, err := c.keystore().Signer(*o.wallet, password, uint32(*o.index))
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	return key
}

func (c *cli) submit(ix tx.Instruction, o *signerOpts) *rpc.TxSubmitResult {
	return c.submitWith(ix, c.signer(o))
}

func (c *cli) submitWith(ix tx.Instruction, key *crypto.PrivateKey) *rpc.TxSubmitResult {
	defer key.Zero()
	b := tx.NewBuilder().
		SetNonce(uint64(time.Now().UnixNano())).
		AddInstruction(ix)
	if err := b.Sign(key); err != nil {
		fatal("sign: %v", err)
	}
	res, err := c.client.SubmitTx(b.Build())
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Transaction:      %s\n", res.TxHash)
	return res
}

// ── misc helpers ────────────────────────────────────────────────────────

func (c *cli) nodeInfo() *rpc.NodeInfoResult {
	info, err := c.client.NodeInfo()
	if err != nil {
		fatal("%v", err)
	}
	return info
}

func (c *cli) accountAddress(owner string) string {
	var d rpc.DeriveResult
	if err := c.client.Call("ledger_accountAddress", rpc.AccountAddressParam{Owner: owner}, &d); err != nil {
		fatal("%v", err)
	}
	return d.Address
}

func (c *cli) licenseAccount(owner string) string {
	info := c.nodeInfo()
	var d rpc.DeriveResult
	param := rpc.AccountAddressParam{Owner: owner, Mint: info.LicenseMint}
	if err := c.client.Call("ledger_accountAddress", param, &d); err != nil {
		fatal("%v", err)
	}
	return d.Address
}

func (c *cli) decimals() uint8 {
	var m ledger.Mint
	if err := c.client.Call("ledger_getMint", nil, &m); err != nil {
		return config.DefaultDecimals
	}
	return m.Decimals
}

func (c *cli) parseUnits(s string, raw bool) uint64 {
	if raw {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			fatal("invalid amount: %v", err)
		}
		return v
	}
	v, err := parseAmount(s, c.decimals())
	if err != nil {
		fatal("invalid amount: %v", err)
	}
	return v
}

func (c *cli) formatUnits(v uint64) string {
	return formatAmount(v, c.decimals())
}

func mustAddress(s, what string) types.Address {
	a, err := types.ParseAddress(s)
	if err != nil {
		fatal("invalid %s %q: %v", what, s, err)
	}
	return a
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		fatal("encode: %v", err)
	}
	return b
}

func printJSON(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

// formatAmount renders base units with the given number of decimals.
func formatAmount(units uint64, decimals uint8) string {
	if decimals == 0 {
		return strconv.FormatUint(units, 10)
	}
	s := strconv.FormatUint(units, 10)
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	whole, frac := s[:len(s)-int(decimals)], strings.TrimRight(s[len(s)-int(decimals):], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// parseAmount parses a decimal token amount ("1.5") into base units.
func parseAmount(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("too many decimal places (max %d)", decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

// ── Password helpers ────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func newPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
