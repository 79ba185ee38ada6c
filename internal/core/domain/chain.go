// internal/core/domain/chain.go
package domain

import "fmt"

// ChainState es el estado explícito de la máquina de estados de una cadena.
type ChainState string

const (
	ChainStart         ChainState = "start"
	ChainFollowing     ChainState = "following"
	ChainFinalPage     ChainState = "final_page"
	ChainError         ChainState = "error"
	ChainLoopDetected  ChainState = "loop_detected"
	ChainDepthExceeded ChainState = "depth_exceeded"
)

// Terminal indica si el estado cierra la cadena.
func (s ChainState) Terminal() bool {
	switch s {
	case ChainFinalPage, ChainError, ChainLoopDetected, ChainDepthExceeded:
		return true
	default:
		return false
	}
}

// NodeStatus es el resultado observado en un salto.
type NodeStatus string

const (
	NodeFinalPage     NodeStatus = "final_page"
	NodeRedirect      NodeStatus = "redirect"
	NodeError         NodeStatus = "error"
	NodeLoopDetected  NodeStatus = "loop_detected"
	NodeDepthExceeded NodeStatus = "depth_exceeded"
)

// FulfillmentNode es un salto de una cadena de redirección.
type FulfillmentNode struct {
	// Index posición dentro de la cadena (0 = seed)
	Index int `json:"index"`

	// URL solicitada (o destino no solicitado en nodos centinela)
	URL string `json:"url"`

	// Host clave de atribución normalizada del host de URL
	Host string `json:"host,omitempty"`

	// Status resultado del salto
	Status NodeStatus `json:"status"`

	// Requested false en nodos centinela (loop, depth, timeout previo a la petición)
	Requested bool `json:"requested"`

	StatusCode int       `json:"status_code,omitempty"`
	Location   string    `json:"location,omitempty"`
	Via        string    `json:"via,omitempty"`
	Page       *PageMeta `json:"page,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Failure    *Failure  `json:"error,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms,omitempty"`

	// Previous índice del nodo anterior (-1 para el primero)
	Previous int `json:"previous"`

	// Prev referencia (no propiedad) al nodo anterior
	Prev *FulfillmentNode `json:"-"`
}

// Chain es la secuencia ordenada de nodos desde el seed hasta el nodo terminal.
type Chain struct {
	Seed    URLSeed            `json:"seed"`
	State   ChainState         `json:"state"`
	Nodes   []*FulfillmentNode `json:"nodes"`
	Failure *Failure           `json:"error,omitempty"`
}

// NewChain crea una cadena en estado Start.
func NewChain(seed URLSeed) *Chain {
	return &Chain{Seed: seed, State: ChainStart, Nodes: []*FulfillmentNode{}}
}

// Append enlaza el nodo al final de la cadena y lo retorna.
func (c *Chain) Append(node *FulfillmentNode) *FulfillmentNode {
	node.Index = len(c.Nodes)
	node.Previous = -1
	node.Prev = nil
	if last := c.Last(); last != nil {
		node.Prev = last
		node.Previous = last.Index
	}
	c.Nodes = append(c.Nodes, node)
	return node
}

// Advance pasa de Start a Following.
func (c *Chain) Advance() error {
	if c.State.Terminal() {
		return fmt.Errorf("chain for %s already terminated in %s", c.Seed.URL, c.State)
	}
	c.State = ChainFollowing
	return nil
}

// Terminate cierra la cadena. Una cadena terminal no puede volver a cerrarse
// ni pasar a un estado no terminal.
func (c *Chain) Terminate(state ChainState, failure *Failure) error {
	if !state.Terminal() {
		return fmt.Errorf("state %s is not terminal", state)
	}
	if c.State.Terminal() {
		return fmt.Errorf("chain for %s already terminated in %s", c.Seed.URL, c.State)
	}
	c.State = state
	c.Failure = failure
	return nil
}

// Last retorna el último nodo o nil.
func (c *Chain) Last() *FulfillmentNode {
	if len(c.Nodes) == 0 {
		return nil
	}
	return c.Nodes[len(c.Nodes)-1]
}

// Hops cuenta los saltos que emitieron una petición real.
func (c *Chain) Hops() int {
	n := 0
	for _, node := range c.Nodes {
		if node.Requested {
			n++
		}
	}
	return n
}

// Hosts retorna los hosts distintos de los saltos solicitados, en orden de
// aparición. Los centinelas no cuentan: su destino nunca se contactó.
func (c *Chain) Hosts() []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, node := range c.Nodes {
		if !node.Requested || node.Host == "" || seen[node.Host] {
			continue
		}
		seen[node.Host] = true
		hosts = append(hosts, node.Host)
	}
	return hosts
}

// Clone copia la cadena re-enlazando las referencias Prev.
func (c *Chain) Clone() *Chain {
	if c == nil {
		return nil
	}
	out := &Chain{Seed: c.Seed, State: c.State, Nodes: make([]*FulfillmentNode, len(c.Nodes))}
	if c.Failure != nil {
		f := *c.Failure
		out.Failure = &f
	}
	for i, n := range c.Nodes {
		cp := *n
		if n.Page != nil {
			page := *n.Page
			cp.Page = &page
		}
		if n.Failure != nil {
			f := *n.Failure
			cp.Failure = &f
		}
		cp.Prev = nil
		if i > 0 {
			cp.Prev = out.Nodes[i-1]
		}
		out.Nodes[i] = &cp
	}
	return out
}
